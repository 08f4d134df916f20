package commandserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/movectl/reportstore"
	"github.com/cyberinferno/movectl/utils"
)

func TestDiscordMessage(t *testing.T) {
	t.Run("short report is fenced", func(t *testing.T) {
		msg := discordMessage(reportstore.Report{ClientName: "rover", LastMessage: "success"})
		assert.True(t, strings.HasPrefix(msg, "```\n"))
		assert.True(t, strings.HasSuffix(msg, "```"))
		assert.Contains(t, msg, "client: rover")
	})

	t.Run("long report keeps the closing fence", func(t *testing.T) {
		msg := discordMessage(reportstore.Report{ClientName: "rover", LastMessage: strings.Repeat("ü", 3000)})
		assert.Equal(t, utils.DiscordContentLimit, utf8.RuneCountInString(msg))
		assert.True(t, utf8.ValidString(msg))
		assert.True(t, strings.HasSuffix(msg, "```"))
	})
}

func TestDiscordNotifier(t *testing.T) {
	var content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content = body.Content
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := DiscordNotifier(server.URL)(context.Background(), reportstore.Report{ClientName: "rover"})
	require.NoError(t, err)
	assert.Contains(t, content, "client: rover")
	assert.True(t, strings.HasSuffix(content, "```"))
}

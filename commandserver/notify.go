package commandserver

import (
	"context"

	"github.com/cyberinferno/movectl/reportstore"
	"github.com/cyberinferno/movectl/utils"
)

const (
	fenceOpen  = "```\n"
	fenceClose = "```"
)

// DiscordNotifier posts each report to a Discord webhook.
func DiscordNotifier(webhook string) Notifier {
	return func(ctx context.Context, r reportstore.Report) error {
		return utils.SendDiscordNotification(ctx, webhook, discordMessage(r))
	}
}

// discordMessage renders r as a code block that fits in one Discord message.
// The body is cut before fencing so the closing fence always survives.
func discordMessage(r reportstore.Report) string {
	body := utils.TruncateRunes(r.String(), utils.DiscordContentLimit-len(fenceOpen)-len(fenceClose))
	return fenceOpen + body + fenceClose
}

package notify

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/nostrlabs/nostroracle/src/types"
)

// Discord announces high-scoring results to a channel. Optional: the
// service runs without it when no token is configured.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, nil
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord open: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

// AnnounceResult posts a short summary of a high-scoring verification.
func (d *Discord) AnnounceResult(res *types.VerificationResult) {
	content := res.Content
	if len(content) > 140 {
		content = content[:140] + "..."
	}
	msg := fmt.Sprintf("Credible post (score %d/100, %d claims): %s",
		res.Score, len(res.Claims), content)
	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		log.Printf("notify: discord announce failed: %v", err)
	}
}

func (d *Discord) Close() {
	_ = d.session.Close()
}

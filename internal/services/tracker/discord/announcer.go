// Package discord delivers fabrication announcements to Discord channels.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/dispatch"
)

// Announcer posts completion messages through a live Discord session.
type Announcer struct {
	session *discordgo.Session
}

// NewAnnouncer wraps an open Discord session.
func NewAnnouncer(session *discordgo.Session) (*Announcer, error) {
	if session == nil {
		return nil, errors.New("discord: session is required")
	}
	return &Announcer{session: session}, nil
}

// Announce posts the completion message to the announcement's channel,
// pinging only the job owner.
func (a *Announcer) Announce(ctx context.Context, announcement dispatch.Announcement) error {
	if a == nil || a.session == nil {
		return errors.New("discord: announcer is not configured")
	}
	if announcement.ChannelID == "" {
		return errors.New("discord: announcement has no channel")
	}

	_, err := a.session.ChannelMessageSendComplex(announcement.ChannelID, &discordgo.MessageSend{
		Content: FormatAnnouncement(announcement),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{announcement.OwnerID},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

// FormatAnnouncement renders the completion message body.
func FormatAnnouncement(a dispatch.Announcement) string {
	what := a.BlueprintName
	if what == "" {
		what = "your fabrication"
	}
	where := a.LocationName
	if where == "" {
		where = "its workbench"
	}
	return fmt.Sprintf("<@%s> **%s** has finished at **%s** and is ready to collect.", a.OwnerID, what, where)
}

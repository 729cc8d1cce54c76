package evidence

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

var ErrTimeout = errors.New("no evidence received before the deadline")

// Collector waits for the next attachment-bearing message from a specific
// member in a specific channel. Single shot: the first matching message wins
// and the handler is removed either way.
type Collector struct {
	timeout time.Duration
}

func NewCollector(timeout time.Duration) *Collector {
	return &Collector{timeout: timeout}
}

func (c *Collector) WaitForAttachment(s *discordgo.Session, channelID, memberID string) (*discordgo.Message, error) {
	matched := make(chan *discordgo.Message, 1)

	remove := s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.ChannelID != channelID || m.Author == nil || m.Author.ID != memberID {
			return
		}
		if len(m.Attachments) == 0 {
			return
		}
		select {
		case matched <- m.Message:
		default:
		}
	})
	defer remove()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case msg := <-matched:
		return msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

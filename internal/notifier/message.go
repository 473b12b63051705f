package notifier

import (
	"time"

	"github.com/slack-go/slack"

	"avnotify/internal/constants"
	"avnotify/internal/scan"
)

const (
	authorName = "ClamAV Scan"
	authorLink = "https://www.clamav.net/"
	authorIcon = "https://www.clamav.net/assets/clamav-trademark.png"

	colorClean    = "#32a852"
	colorInfected = "#ad1721"

	headlineClean    = ":white_check_mark: :white_check_mark: :white_check_mark: New Scan Result: CLEAN :white_check_mark: :white_check_mark: :white_check_mark:"
	headlineInfected = ":space_invader: :space_invader: :space_invader: New Scan Result: INFECTED :space_invader: :space_invader: :space_invader:"

	thumbClean    = "https://emojis.slackmojis.com/emojis/images/1588863770/8928/space-invader-green.png"
	thumbInfected = "https://emojis.slackmojis.com/emojis/images/1588863793/8929/space-invader-orange.png"
)

type Field struct {
	Title string
	Value string
	Short bool
}

// AlertMessage is the chat rendering of one scan result.
type AlertMessage struct {
	Color     string
	Headline  string
	Thumbnail string
	Fields    []Field
}

type style struct {
	color     string
	headline  string
	thumbnail string
}

func styleFor(status scan.Status) (style, error) {
	switch status {
	case scan.StatusClean:
		return style{color: colorClean, headline: headlineClean, thumbnail: thumbClean}, nil
	case scan.StatusInfected:
		return style{color: colorInfected, headline: headlineInfected, thumbnail: thumbInfected}, nil
	default:
		return style{}, status.Validate()
	}
}

// BuildMessage renders res with the timestamp formatted in loc.
func BuildMessage(res scan.Result, at time.Time, loc *time.Location) (AlertMessage, error) {
	st, err := styleFor(res.Status)
	if err != nil {
		return AlertMessage{}, err
	}

	return AlertMessage{
		Color:     st.color,
		Headline:  st.headline,
		Thumbnail: st.thumbnail,
		Fields: []Field{
			{Title: "Bucket", Value: res.Bucket, Short: false},
			{Title: "When", Value: at.In(loc).Format(constants.AlertTimeLayout), Short: false},
			{Title: "Key", Value: res.ObjectKey, Short: true},
			{Title: "Status", Value: res.Status.String(), Short: true},
		},
	}, nil
}

// webhookPayload is the incoming-webhook body: a single attachment.
type webhookPayload struct {
	Attachments []slack.Attachment `json:"attachments"`
}

func (m AlertMessage) payload() webhookPayload {
	fields := make([]slack.AttachmentField, 0, len(m.Fields))
	for _, f := range m.Fields {
		fields = append(fields, slack.AttachmentField{
			Title: f.Title,
			Value: f.Value,
			Short: f.Short,
		})
	}

	return webhookPayload{
		Attachments: []slack.Attachment{{
			MarkdownIn: []string{"text"},
			Color:      m.Color,
			Text:       m.Headline,
			AuthorName: authorName,
			AuthorLink: authorLink,
			AuthorIcon: authorIcon,
			Fields:     fields,
			ThumbURL:   m.Thumbnail,
		}},
	}
}

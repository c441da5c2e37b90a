package output

import (
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/kundliinsight/kundli/internal/core"
)

const (
	dateLayout     = "2006-01-02 15:04"
	messagePreview = 60
)

// Posts lists blog posts, newest first as given.
func Posts(posts []core.Post) Listing {
	return Listing{
		Title:  "Posts",
		Header: []string{"ID", "Slug", "Title", "Status", "Updated"},
		Rows: lo.Map(posts, func(p core.Post, _ int) []string {
			return []string{
				strconv.FormatInt(p.ID, 10),
				p.Slug,
				truncate(p.Title, 48),
				string(p.Status),
				formatTime(p.UpdatedAt),
			}
		}),
		Data:  lo.Ternary(posts == nil, []core.Post{}, posts),
		Empty: "(no posts)",
	}
}

// Categories lists blog categories.
func Categories(categories []core.Category) Listing {
	return Listing{
		Title:  "Categories",
		Header: []string{"ID", "Slug", "Name", "Description"},
		Rows: lo.Map(categories, func(c core.Category, _ int) []string {
			return []string{strconv.FormatInt(c.ID, 10), c.Slug, c.Name, truncate(c.Description, 48)}
		}),
		Data:  lo.Ternary(categories == nil, []core.Category{}, categories),
		Empty: "(no categories)",
	}
}

// ContactMessages lists contact form submissions with a preview of each message.
func ContactMessages(messages []core.ContactMessage) Listing {
	return Listing{
		Title:  "Contact messages",
		Header: []string{"Received", "Name", "Email", "Message"},
		Rows: lo.Map(messages, func(m core.ContactMessage, _ int) []string {
			return []string{formatTime(m.CreatedAt), m.Name, m.Email, truncate(m.Message, messagePreview)}
		}),
		Data:  lo.Ternary(messages == nil, []core.ContactMessage{}, messages),
		Empty: "(no messages)",
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}

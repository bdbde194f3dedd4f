package services

import (
	"context"
	"sort"
	"strings"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// ContactStore persists scanned contacts. Records are append-only; there is
// no update path.
type ContactStore interface {
	Append(ctx context.Context, c *models.ScannedContact) error
	// ListByUser returns the user's contacts ordered by name.
	ListByUser(ctx context.Context, userID string) ([]models.ScannedContact, error)
	// FindByEmail matches email case-insensitively; nil when absent.
	FindByEmail(ctx context.Context, userID, email string) (*models.ScannedContact, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// DedupeContacts collapses contacts sharing an email (case-insensitive,
// trimmed). Contacts without an email are keyed by ID. The first occurrence
// wins and input order is kept.
func DedupeContacts(contacts []models.ScannedContact) []models.ScannedContact {
	seen := make(map[string]struct{}, len(contacts))
	out := make([]models.ScannedContact, 0, len(contacts))
	for _, c := range contacts {
		key := dedupeKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupeKey(c models.ScannedContact) string {
	if email := normalizeEmail(c.Email); email != "" {
		return "email:" + email
	}
	return "id:" + c.ID
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func sortContactsByName(contacts []models.ScannedContact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].Name < contacts[j].Name
	})
}

// filterByName keeps contacts whose name contains term, ignoring case.
func filterByName(contacts []models.ScannedContact, term string) []models.ScannedContact {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return contacts
	}
	out := contacts[:0:0]
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

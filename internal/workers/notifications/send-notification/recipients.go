package sendnotification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"afh-workers/internal/models"
)

var (
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrUnknownRecipientType = errors.New("unknown recipient type")
)

var recipientTables = map[models.RecipientType]string{
	models.RecipientFamily:        "family_contacts",
	models.RecipientStaff:         "staff_members",
	models.RecipientFacilityOwner: "facility_owners",
}

func recipientQuery(recipientType models.RecipientType) (string, error) {
	table, ok := recipientTables[recipientType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRecipientType, recipientType)
	}
	return fmt.Sprintf(
		`SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), notifications_enabled FROM %s WHERE id = $1`,
		table), nil
}

func lookupRecipient(ctx context.Context, db *sql.DB, recipientType models.RecipientType, id string) (*Recipient, error) {
	query, err := recipientQuery(recipientType)
	if err != nil {
		return nil, err
	}

	var r Recipient
	err = db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrRecipientNotFound, recipientType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s recipient: %w", recipientType, err)
	}
	return &r, nil
}

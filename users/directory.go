package users

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-auth-client/httpclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// ListPath is the users grid endpoint.
const ListPath = "/api/users"

// Member statuses shown in the users grid.
const (
	StatusActive              = "active"
	StatusBlocked             = "blocked"
	StatusPendingVerification = "pending_verification"
)

// Member is one row of the users grid.
type Member struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Roles         []string `json:"roles"`
	Status        string   `json:"status"`
	EmailVerified bool     `json:"emailVerified"`
}

// Page is the paginated form of the users payload.
type Page struct {
	Items []Member `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// Directory fetches the users grid through the authenticated client, so an
// expired access token is refreshed transparently.
type Directory struct {
	client *httpclient.Client
}

func NewDirectory(client *httpclient.Client) *Directory {
	return &Directory{client: client}
}

// List returns every member the server reports, normalised.
func (d *Directory) List(ctx context.Context) ([]Member, error) {
	var payload json.RawMessage
	if err := d.client.GetJSON(ctx, ListPath, &payload); err != nil {
		return nil, fmt.Errorf("[Directory List] %w", err)
	}
	return DecodeMembers(payload)
}

// DecodeMembers accepts either a bare array of rows or a {items,total,page,limit}
// page and normalises every row. A payload of any other shape yields no rows.
func DecodeMembers(payload []byte) ([]Member, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrValidation, "[DecodeMembers] %v", err)
	}

	var rows []any
	switch v := decoded.(type) {
	case []any:
		rows = v
	case map[string]any:
		rows, _ = v["items"].([]any)
	}

	members := make([]Member, 0, len(rows))
	for _, row := range rows {
		fields, ok := row.(map[string]any)
		if !ok {
			continue
		}
		members = append(members, normalizeMember(fields))
	}
	return members, nil
}

func normalizeMember(fields map[string]any) Member {
	email := utils.StringField(fields, "email", "")

	var roles []string
	if list, ok := fields["roles"].([]any); ok {
		roles = utils.ToStringSlice(list)
	} else if role := utils.StringField(fields, "role", ""); role != "" {
		roles = []string{role}
	} else {
		roles = []string{}
	}

	return Member{
		ID:            utils.StringField(fields, "id", email),
		Name:          utils.StringField(fields, "name", ""),
		Email:         email,
		Roles:         roles,
		Status:        utils.StringField(fields, "status", StatusActive),
		EmailVerified: utils.BoolField(fields, "emailVerified", true),
	}
}

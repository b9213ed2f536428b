// Package feedback maps the backend feedback endpoints one-to-one.  Results
// are never cached; each page fetches what it renders.
package feedback

import (
	"context"
	"net/url"
	"strings"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/model"
)

// MsgMissingFields is shown when a required submit field is empty.
const MsgMissingFields = "Please fill in all fields"

type SubmitInput struct {
	Title       string         `json:"title"`
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
}

// UpdateInput is a partial update; nil fields are left out of the request.
type UpdateInput struct {
	Status        *model.Status `json:"status,omitempty"`
	AdminResponse *string       `json:"adminResponse,omitempty"`
}

type itemData struct {
	Feedback model.Feedback `json:"feedback"`
}

type listData struct {
	Count     int              `json:"count"`
	Feedbacks []model.Feedback `json:"feedbacks"`
}

type Service struct {
	api *apiclient.Client
}

// NewService expects a token-bound client (see auth.Service.API).
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// Submit checks that every field is present and then creates the item.
// Category membership is left to the form and the backend.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (model.Feedback, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Category == "" || in.Description == "" {
		return model.Feedback{}, &apiclient.ValidationError{Message: MsgMissingFields}
	}
	var data itemData
	if _, err := s.api.Post(ctx, "/api/feedback/submit", in, &data); err != nil {
		return model.Feedback{}, err
	}
	return data.Feedback, nil
}

func (s *Service) ListMine(ctx context.Context) ([]model.Feedback, error) {
	return s.list(ctx, "/api/feedback/my-feedbacks")
}

// ListAll is admin-only; the backend enforces the role.
func (s *Service) ListAll(ctx context.Context) ([]model.Feedback, error) {
	return s.list(ctx, "/api/feedback/all")
}

func (s *Service) list(ctx context.Context, path string) ([]model.Feedback, error) {
	var data listData
	if _, err := s.api.Get(ctx, path, &data); err != nil {
		return nil, err
	}
	if data.Feedbacks == nil {
		return []model.Feedback{}, nil
	}
	return data.Feedbacks, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Feedback, error) {
	var data itemData
	if _, err := s.api.Get(ctx, itemPath(id), &data); err != nil {
		return model.Feedback{}, err
	}
	return data.Feedback, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (model.Feedback, error) {
	var data itemData
	if _, err := s.api.Put(ctx, itemPath(id), in, &data); err != nil {
		return model.Feedback{}, err
	}
	return data.Feedback, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, itemPath(id), nil)
	return err
}

func itemPath(id string) string {
	return "/api/feedback/" + url.PathEscape(id)
}

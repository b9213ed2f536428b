package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Trandsoulz/student-connect-client/internal/model"
)

// feedbackRow is the stored shape; user references are ids and are
// populated on read.
type feedbackRow struct {
	ID            string
	Title         string
	Category      model.Category
	Description   string
	Status        model.Status
	StudentID     string
	AdminResponse string
	RespondedByID string
	RespondedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FeedbackRepo keeps feedback in memory.  Lists are newest first.
type FeedbackRepo struct {
	users *UserRepo
	now   func() time.Time

	mu   sync.RWMutex
	rows map[string]feedbackRow
}

func NewFeedbackRepo(users *UserRepo) *FeedbackRepo {
	return &FeedbackRepo{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
		rows:  map[string]feedbackRow{},
	}
}

// FeedbackUpdate lists the fields an admin may change.  Nil means keep.
type FeedbackUpdate struct {
	Status        *model.Status
	AdminResponse *string
}

func (r *FeedbackRepo) populate(row feedbackRow) model.Feedback {
	f := model.Feedback{
		ID:            row.ID,
		Title:         row.Title,
		Category:      row.Category,
		Description:   row.Description,
		Status:        row.Status,
		Student:       r.users.ref(row.StudentID),
		AdminResponse: row.AdminResponse,
		RespondedAt:   row.RespondedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.RespondedByID != "" {
		ref := r.users.ref(row.RespondedByID)
		f.RespondedBy = &ref
	}
	return f
}

// Create stores a new Pending item owned by studentID.
func (r *FeedbackRepo) Create(ctx context.Context, studentID, title string, category model.Category, description string) (model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return model.Feedback{}, err
	}
	now := r.now()
	row := feedbackRow{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Category:    category,
		Description: strings.TrimSpace(description),
		Status:      model.StatusPending,
		StudentID:   studentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.mu.Lock()
	r.rows[row.ID] = row
	r.mu.Unlock()
	return r.populate(row), nil
}

// ListByStudent returns the student's own items.
func (r *FeedbackRepo) ListByStudent(ctx context.Context, studentID string) ([]model.Feedback, error) {
	return r.list(ctx, func(row feedbackRow) bool { return row.StudentID == studentID })
}

// ListAll returns every item.
func (r *FeedbackRepo) ListAll(ctx context.Context) ([]model.Feedback, error) {
	return r.list(ctx, func(feedbackRow) bool { return true })
}

func (r *FeedbackRepo) list(ctx context.Context, keep func(feedbackRow) bool) ([]model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := make([]feedbackRow, 0, len(r.rows))
	for _, row := range r.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	out := make([]model.Feedback, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.populate(row))
	}
	return out, nil
}

// Get returns one item.
func (r *FeedbackRepo) Get(ctx context.Context, id string) (model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return model.Feedback{}, err
	}
	r.mu.RLock()
	row, ok := r.rows[id]
	r.mu.RUnlock()
	if !ok {
		return model.Feedback{}, ErrNotFound
	}
	return r.populate(row), nil
}

// GetOwned returns the item only when studentID owns it; otherwise it
// reports ErrNotFound.
func (r *FeedbackRepo) GetOwned(ctx context.Context, id, studentID string) (model.Feedback, error) {
	f, err := r.Get(ctx, id)
	if err != nil {
		return model.Feedback{}, err
	}
	if f.Student.ID != studentID {
		return model.Feedback{}, ErrNotFound
	}
	return f, nil
}

// Update applies an admin change.  Setting AdminResponse stamps the
// responder and the response time.
func (r *FeedbackRepo) Update(ctx context.Context, id, adminID string, upd FeedbackUpdate) (model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return model.Feedback{}, err
	}
	r.mu.Lock()
	row, ok := r.rows[id]
	if !ok {
		r.mu.Unlock()
		return model.Feedback{}, ErrNotFound
	}
	now := r.now()
	if upd.Status != nil {
		row.Status = *upd.Status
	}
	// Only a changed response moves the responder stamp.
	if upd.AdminResponse != nil {
		if resp := strings.TrimSpace(*upd.AdminResponse); resp != row.AdminResponse {
			row.AdminResponse = resp
			row.RespondedByID = adminID
			row.RespondedAt = &now
		}
	}
	row.UpdatedAt = now
	r.rows[id] = row
	r.mu.Unlock()
	return r.populate(row), nil
}

// Delete removes one item.
func (r *FeedbackRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

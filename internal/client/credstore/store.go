package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// Logical key names.
const (
	KeyUser             = "user"
	KeyToken            = "token"
	KeyRefreshToken     = "refreshToken"
	KeyComplaintSummary = "complaintSummary"
	KeySchemaVersion    = "schemaVersion"

	// keyLegacyStaffID is the single staging slot older layouts shared
	// between both flows. It is only ever cleared.
	keyLegacyStaffID = "staffId"
)

// SchemaVersion is the layout version written by Migrate.
const SchemaVersion = "1"

// Flow names a verification flow owning a staging slot.
type Flow string

const (
	FlowSignup Flow = "signup"
	FlowReset  Flow = "reset"
)

// StagingKey returns the key of the staging slot of flow.
func StagingKey(flow Flow) string {
	return "staffId." + string(flow)
}

// sessionKeys are written on login and cleared on invalidation.
var sessionKeys = []string{KeyUser, KeyToken, KeyRefreshToken, KeyComplaintSummary}

// allKeys are cleared by ClearAll.
var allKeys = []string{
	KeyUser, KeyToken, KeyRefreshToken, KeyComplaintSummary,
	StagingKey(FlowSignup), StagingKey(FlowReset),
}

// Store gives typed access to the credential slots of a Backend. Every
// backend failure is reported as an apperr storage error.
type Store struct {
	backend Backend
	log     *zap.Logger
}

// New wraps backend.
func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log}
}

// Migrate brings the persisted layout to SchemaVersion. A store written by
// an unknown layout is wiped: its values are not trusted.
func (s *Store) Migrate(ctx context.Context) error {
	v, ok, err := s.backend.Get(ctx, KeySchemaVersion)
	if err != nil {
		return apperr.Storage("read schema version", err)
	}
	if ok && v == SchemaVersion {
		return nil
	}
	s.log.Info("resetting credential store layout",
		zap.String("found", v), zap.String("want", SchemaVersion))

	keys := append([]string{keyLegacyStaffID}, allKeys...)
	if err := s.clear(ctx, keys); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, KeySchemaVersion, SchemaVersion); err != nil {
		return apperr.Storage("write schema version", err)
	}
	return nil
}

// StaffID returns the staff id staged for flow.
func (s *Store) StaffID(ctx context.Context, flow Flow) (string, bool, error) {
	return s.getString(ctx, StagingKey(flow))
}

// SetStaffID stages id for flow.
func (s *Store) SetStaffID(ctx context.Context, flow Flow, id string) error {
	return s.setString(ctx, StagingKey(flow), id)
}

// ClearStaffID drops the staged id of flow.
func (s *Store) ClearStaffID(ctx context.Context, flow Flow) error {
	return s.delete(ctx, StagingKey(flow))
}

// Token returns the session token.
func (s *Store) Token(ctx context.Context) (string, bool, error) {
	return s.getString(ctx, KeyToken)
}

// SetToken replaces the session token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.setString(ctx, KeyToken, token)
}

// ClearToken drops the session token.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.delete(ctx, KeyToken)
}

// RefreshToken returns the stored refresh credential.
func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	return s.getString(ctx, KeyRefreshToken)
}

// SetRefreshToken replaces the refresh credential.
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.setString(ctx, KeyRefreshToken, token)
}

// User returns the cached user profile.
func (s *Store) User(ctx context.Context) (*models.User, error) {
	var u models.User
	ok, err := s.getJSON(ctx, KeyUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SetUser caches the user profile.
func (s *Store) SetUser(ctx context.Context, u models.User) error {
	return s.setJSON(ctx, KeyUser, u)
}

// ClearUser drops the cached user profile.
func (s *Store) ClearUser(ctx context.Context) error {
	return s.delete(ctx, KeyUser)
}

// ComplaintSummary returns the cached complaint counts.
func (s *Store) ComplaintSummary(ctx context.Context) (*models.ComplaintSummary, error) {
	var sum models.ComplaintSummary
	ok, err := s.getJSON(ctx, KeyComplaintSummary, &sum)
	if err != nil || !ok {
		return nil, err
	}
	return &sum, nil
}

// SetComplaintSummary caches the complaint counts.
func (s *Store) SetComplaintSummary(ctx context.Context, sum models.ComplaintSummary) error {
	return s.setJSON(ctx, KeyComplaintSummary, sum)
}

// ClearComplaintSummary drops the cached complaint counts.
func (s *Store) ClearComplaintSummary(ctx context.Context) error {
	return s.delete(ctx, KeyComplaintSummary)
}

// SaveSession writes every session key. The token goes last; if any write
// fails the partial session is cleared so a token never outlives its user.
func (s *Store) SaveSession(ctx context.Context, sess models.Session) error {
	err := s.SetComplaintSummary(ctx, sess.Summary)
	if err == nil {
		err = s.SetUser(ctx, sess.User)
	}
	if err == nil && sess.RefreshToken != "" {
		err = s.SetRefreshToken(ctx, sess.RefreshToken)
	}
	if err == nil {
		err = s.SetToken(ctx, sess.Token)
	}
	if err != nil {
		if cerr := s.ClearSession(ctx); cerr != nil {
			s.log.Error("failed to roll back partial session", zap.Error(cerr))
		}
		return err
	}
	return nil
}

// ClearSession removes the session keys and leaves staging slots alone.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.clear(ctx, sessionKeys)
}

// ClearAll removes every credential slot. All deletes are attempted; keys
// already removed stay removed when a later one fails.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.clear(ctx, allKeys)
}

func (s *Store) clear(ctx context.Context, keys []string) error {
	var errs []error
	for _, k := range keys {
		if err := s.backend.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	if len(errs) > 0 {
		return apperr.Storage("clear", errors.Join(errs...))
	}
	return nil
}

func (s *Store) getString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", false, apperr.Storage("read "+key, err)
	}
	return v, ok, nil
}

func (s *Store) setString(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		return apperr.Storage("write "+key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return apperr.Storage("clear "+key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.getString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, apperr.Storage("decode "+key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperr.Storage("encode "+key, err)
	}
	return s.setString(ctx, key, string(b))
}

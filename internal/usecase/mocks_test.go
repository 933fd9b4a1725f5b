package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/repository"
)

// memUserRepo is an in-memory port.UserRepository.
type memUserRepo struct {
	mu               sync.Mutex
	users            map[string]*domain.User
	createCalls      int
	createErr        error
	updateProfileErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) add(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := user
	m.users[user.ID] = &copy
}

func (m *memUserRepo) get(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy
	}
	return nil
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	copy := user
	m.users[user.ID] = &copy
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Profile.Username != nil && *u.Profile.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) UpdateStatus(_ context.Context, id string, status domain.UserStatus) error {
	return m.mutate(id, func(u *domain.User) { u.Status = status })
}

func (m *memUserRepo) SetEmailVerified(_ context.Context, id string, at time.Time) error {
	return m.mutate(id, func(u *domain.User) {
		u.EmailVerified = true
		u.UpdatedAt = at
	})
}

func (m *memUserRepo) SetPhoneVerified(_ context.Context, id string, at time.Time) error {
	return m.mutate(id, func(u *domain.User) {
		u.PhoneVerified = true
		u.UpdatedAt = at
	})
}

func (m *memUserRepo) UpdateProfile(_ context.Context, id string, profile domain.Profile) error {
	if m.updateProfileErr != nil {
		return m.updateProfileErr
	}
	return m.mutate(id, func(u *domain.User) { u.Profile = profile })
}

func (m *memUserRepo) UpdateSettings(_ context.Context, id string, settings domain.Settings) error {
	return m.mutate(id, func(u *domain.User) { u.Settings = settings })
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, hash, algo string) error {
	return m.mutate(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordAlgo = algo
	})
}

func (m *memUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return m.mutate(id, func(u *domain.User) { u.LastLoginAt = &at })
}

func (m *memUserRepo) UpsertFCMToken(_ context.Context, id, deviceID string, token domain.FCMToken) error {
	return m.mutate(id, func(u *domain.User) {
		if u.FCMTokens == nil {
			u.FCMTokens = map[string]domain.FCMToken{}
		}
		u.FCMTokens[deviceID] = token
	})
}

func (m *memUserRepo) mutate(id string, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

// memTokenRepo is an in-memory port.TokenRepository.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.OneTimeToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]*domain.OneTimeToken{}}
}

func (m *memTokenRepo) Create(_ context.Context, token domain.OneTimeToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := token
	m.tokens[token.ID] = &copy
	return nil
}

func (m *memTokenRepo) GetByHash(_ context.Context, hash string) (*domain.OneTimeToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			copy := *t
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memTokenRepo) Consume(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	t.UsedAt = &now
	return nil
}

func (m *memTokenRepo) DeleteForUser(_ context.Context, userID string, purpose domain.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.UserID == userID && t.Purpose == purpose && t.UsedAt == nil {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memTokenRepo) live(userID string, purpose domain.TokenPurpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.Purpose == purpose && t.UsedAt == nil {
			n++
		}
	}
	return n
}

// memVerificationStore is an in-memory port.VerificationStore driven by an
// injectable clock.
type memVerificationStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.VerificationSession
	cooldowns map[string]time.Time
	now       func() time.Time
}

func newMemVerificationStore(now func() time.Time) *memVerificationStore {
	if now == nil {
		now = time.Now
	}
	return &memVerificationStore{
		sessions:  map[string]*domain.VerificationSession{},
		cooldowns: map[string]time.Time{},
		now:       now,
	}
}

func (m *memVerificationStore) CreateSession(_ context.Context, session domain.VerificationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := session
	m.sessions[session.Handle] = &copy
	return nil
}

func (m *memVerificationStore) GetSession(_ context.Context, handle string) (*domain.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[handle]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *s
	return &copy, nil
}

func (m *memVerificationStore) SpendSession(_ context.Context, handle string) (*domain.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[handle]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.sessions, handle)
	copy := *s
	return &copy, nil
}

func (m *memVerificationStore) CooldownRemaining(_ context.Context, userID string, channel domain.VerificationChannel) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	readyAt, ok := m.cooldowns[cooldownKey(userID, channel)]
	if !ok {
		return 0, nil
	}
	remaining := readyAt.Sub(m.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (m *memVerificationStore) SetCooldown(_ context.Context, userID string, channel domain.VerificationChannel, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[cooldownKey(userID, channel)] = m.now().Add(d)
	return nil
}

func cooldownKey(userID string, channel domain.VerificationChannel) string {
	return fmt.Sprintf("%s/%s", channel, userID)
}

// captureSMSSender records dispatched codes.
type captureSMSSender struct {
	mu     sync.Mutex
	phones []string
	codes  []string
	err    error
}

func (m *captureSMSSender) SendCode(_ context.Context, phone, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.phones = append(m.phones, phone)
	m.codes = append(m.codes, code)
	return nil
}

func (m *captureSMSSender) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

func (m *captureSMSSender) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

// captureEmailSender records dispatched tokens.
type captureEmailSender struct {
	mu             sync.Mutex
	verifyEmails   []string
	verifyTokens   []string
	resetEmails    []string
	resetTokens    []string
	verifyErr      error
	resetSendError error
}

func (m *captureEmailSender) SendVerificationLink(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verifyErr != nil {
		return m.verifyErr
	}
	m.verifyEmails = append(m.verifyEmails, email)
	m.verifyTokens = append(m.verifyTokens, token)
	return nil
}

func (m *captureEmailSender) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetSendError != nil {
		return m.resetSendError
	}
	m.resetEmails = append(m.resetEmails, email)
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *captureEmailSender) lastVerifyToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verifyTokens) == 0 {
		return ""
	}
	return m.verifyTokens[len(m.verifyTokens)-1]
}

// captureEvents records published domain events.
type captureEvents struct {
	mu          sync.Mutex
	registered  []domain.UserRegisteredEvent
	verified    []domain.UserVerifiedEvent
	resets      []domain.PasswordResetRequestedEvent
	listChanges []domain.ListChangedEvent
	itemChanges []domain.ItemChangedEvent
	invitations []domain.InvitationEvent
}

func (m *captureEvents) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, e)
	return nil
}

func (m *captureEvents) PublishUserVerified(_ context.Context, e domain.UserVerifiedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified = append(m.verified, e)
	return nil
}

func (m *captureEvents) PublishPasswordResetRequested(_ context.Context, e domain.PasswordResetRequestedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, e)
	return nil
}

func (m *captureEvents) PublishListChanged(_ context.Context, e domain.ListChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listChanges = append(m.listChanges, e)
	return nil
}

func (m *captureEvents) PublishItemChanged(_ context.Context, e domain.ItemChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemChanges = append(m.itemChanges, e)
	return nil
}

func (m *captureEvents) PublishInvitation(_ context.Context, e domain.InvitationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, e)
	return nil
}

// memListRepo is an in-memory port.ListRepository.
type memListRepo struct {
	mu           sync.Mutex
	lists        map[string]*domain.List
	addMemberErr error
}

func newMemListRepo() *memListRepo {
	return &memListRepo{lists: map[string]*domain.List{}}
}

func (m *memListRepo) Create(_ context.Context, list domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := list
	copy.Members = make(map[string]domain.ListMember, len(list.Members))
	for k, v := range list.Members {
		copy.Members[k] = v
	}
	m.lists[list.ID] = &copy
	return nil
}

func (m *memListRepo) GetByID(_ context.Context, id string) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *l
	copy.Members = make(map[string]domain.ListMember, len(l.Members))
	for k, v := range l.Members {
		copy.Members[k] = v
	}
	return &copy, nil
}

func (m *memListRepo) ListForUser(_ context.Context, userID string) ([]domain.UserList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.UserList
	for _, l := range m.lists {
		member, ok := l.Members[userID]
		if !ok {
			continue
		}
		entries = append(entries, domain.UserList{
			ListID:         l.ID,
			ListName:       l.Name,
			Role:           member.Role,
			IsShared:       len(l.Members) > 1,
			LastAccessedAt: l.UpdatedAt,
		})
	}
	return entries, nil
}

func (m *memListRepo) Update(_ context.Context, id string, input domain.UpdateListInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return repository.ErrNotFound
	}
	if input.Name != nil {
		l.Name = *input.Name
	}
	if input.Color != nil {
		l.Color = input.Color
	}
	return nil
}

func (m *memListRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *memListRepo) AddMember(_ context.Context, listID string, member domain.ListMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addMemberErr != nil {
		return m.addMemberErr
	}
	l, ok := m.lists[listID]
	if !ok {
		return repository.ErrNotFound
	}
	l.Members[member.UserID] = member
	return nil
}

func (m *memListRepo) RemoveMember(_ context.Context, listID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := l.Members[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(l.Members, userID)
	return nil
}

func (m *memListRepo) UpdateCounts(_ context.Context, listID string, itemCount, completedCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listID]
	if !ok {
		return repository.ErrNotFound
	}
	l.ItemCount = itemCount
	l.CompletedCount = completedCount
	return nil
}

// memItemRepo is an in-memory port.ItemRepository.
type memItemRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Item
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: map[string]*domain.Item{}}
}

func (m *memItemRepo) Create(_ context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := item
	m.items[item.ID] = &copy
	return nil
}

func (m *memItemRepo) GetByID(_ context.Context, id string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *i
	return &copy, nil
}

func (m *memItemRepo) ListForList(_ context.Context, listID string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.Item
	for _, i := range m.items {
		if i.ListID == listID {
			items = append(items, *i)
		}
	}
	return items, nil
}

func (m *memItemRepo) Update(_ context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := item
	m.items[item.ID] = &copy
	return nil
}

func (m *memItemRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memItemRepo) CountForList(_ context.Context, listID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, completed := 0, 0
	for _, i := range m.items {
		if i.ListID != listID {
			continue
		}
		total++
		if i.Completed {
			completed++
		}
	}
	return total, completed, nil
}

// memInvitationRepo is an in-memory port.InvitationRepository.
type memInvitationRepo struct {
	mu          sync.Mutex
	invitations map[string]*domain.Invitation
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{invitations: map[string]*domain.Invitation{}}
}

func (m *memInvitationRepo) Create(_ context.Context, inv domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := inv
	m.invitations[inv.ID] = &copy
	return nil
}

func (m *memInvitationRepo) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *i
	return &copy, nil
}

func (m *memInvitationRepo) ListPendingForUser(_ context.Context, userID string) ([]domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Invitation
	for _, i := range m.invitations {
		if i.Status == domain.InvitationStatusPending && i.ToUserID != nil && *i.ToUserID == userID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *memInvitationRepo) ListForList(_ context.Context, listID string) ([]domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Invitation
	for _, i := range m.invitations {
		if i.ListID == listID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *memInvitationRepo) HasPending(_ context.Context, listID, toUserID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.invitations {
		if i.ListID == listID && i.Status == domain.InvitationStatusPending && i.ToUserID != nil && *i.ToUserID == toUserID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvitationRepo) UpdateStatus(_ context.Context, id string, status domain.InvitationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.invitations[id]
	if !ok || i.Status != domain.InvitationStatusPending {
		return repository.ErrNotFound
	}
	i.Status = status
	now := time.Now().UTC()
	i.RespondedAt = &now
	return nil
}

// failingPictureStore always fails, for best-effort upload tests.
type failingPictureStore struct{}

func (failingPictureStore) Save(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("picture store unavailable")
}

func (failingPictureStore) Remove(context.Context, string) error { return nil }

// memPictureStore records saved pictures.
type memPictureStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newMemPictureStore() *memPictureStore {
	return &memPictureStore{saved: map[string][]byte{}}
}

func (m *memPictureStore) Save(_ context.Context, userID, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[userID] = data
	return "https://pictures.local/" + userID + ".jpg", nil
}

func (m *memPictureStore) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, userID)
	return nil
}

var (
	_ port.UserRepository       = (*memUserRepo)(nil)
	_ port.TokenRepository      = (*memTokenRepo)(nil)
	_ port.VerificationStore    = (*memVerificationStore)(nil)
	_ port.SMSSender            = (*captureSMSSender)(nil)
	_ port.EmailSender          = (*captureEmailSender)(nil)
	_ port.EventPublisher       = (*captureEvents)(nil)
	_ port.ListRepository       = (*memListRepo)(nil)
	_ port.ItemRepository       = (*memItemRepo)(nil)
	_ port.InvitationRepository = (*memInvitationRepo)(nil)
	_ port.PictureStore         = (*failingPictureStore)(nil)
	_ port.PictureStore         = (*memPictureStore)(nil)
)

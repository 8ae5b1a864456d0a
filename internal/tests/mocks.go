package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridebot/internal/domain"
	"ridebot/internal/repository"
	"ridebot/internal/route"
	"ridebot/internal/telegram"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is an in-memory TripRepository. UpdateIfVersion
// enforces the version check under a mutex so concurrent callers race
// exactly the way they do against the real conditional UPDATE.
type MockTripRepository struct {
	mu    sync.Mutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount   int32
	UpdateCallCount   int32
	ConflictCallCount int32

	// Error injection
	CreateError error
	GetError    error
	UpdateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip seeds a trip directly, bypassing Create bookkeeping.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
}

// Trip returns a snapshot of the stored trip, or nil.
func (m *MockTripRepository) Trip(id string) *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := *trip
	return &copy
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	copy.Version = 1
	m.trips[trip.ID] = &copy
	trip.Version = 1
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetByShortCode(ctx context.Context, code string) (*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trip := range m.trips {
		if trip.ShortCode == code {
			copy := *trip
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTripRepository) UpdateIfVersion(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		atomic.AddInt32(&m.ConflictCallCount, 1)
		return repository.ErrVersionConflict
	}
	copy := *trip
	copy.Version = expectedVersion + 1
	copy.UpdatedAt = time.Now()
	m.trips[trip.ID] = &copy
	trip.Version = copy.Version
	return nil
}

func (m *MockTripRepository) ListRecentByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Trip, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Trip
	for _, trip := range m.trips {
		if trip.PassengerChatID == chatID {
			copy := *trip
			out = append(out, &copy)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK SESSION REPOSITORY
// ──────────────────────────────────────────────

// MockSessionRepository is an in-memory SessionRepository.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.Session

	PutCallCount    int32
	DeleteCallCount int32

	GetError error
	PutError error
}

// NewMockSessionRepository creates a new mock session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[int64]*domain.Session),
	}
}

// AddSession seeds a session.
func (m *MockSessionRepository) AddSession(session *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *session
	if copy.UpdatedAt.IsZero() {
		copy.UpdatedAt = time.Now()
	}
	m.sessions[session.ChatID] = &copy
}

// Session returns a snapshot of the stored session, or nil.
func (m *MockSessionRepository) Session(chatID int64) *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	copy := *session
	return &copy
}

func (m *MockSessionRepository) Get(ctx context.Context, chatID int64) (*domain.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *session
	return &copy, nil
}

func (m *MockSessionRepository) Put(ctx context.Context, session *domain.Session) error {
	atomic.AddInt32(&m.PutCallCount, 1)
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *session
	m.sessions[session.ChatID] = &copy
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, chatID int64) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK BOOKING STORE
// ──────────────────────────────────────────────

// MockBookingStore commits a confirmation against the in-memory trip
// and session mocks as one all-or-nothing unit, mirroring the real
// store's transaction.
type MockBookingStore struct {
	trips    *MockTripRepository
	sessions *MockSessionRepository

	ConfirmCallCount int32

	// Error injection: a non-nil ConfirmError fails the whole commit,
	// leaving both mocks untouched.
	ConfirmError error
}

// NewMockBookingStore creates a booking store over the given mocks.
func NewMockBookingStore(trips *MockTripRepository, sessions *MockSessionRepository) *MockBookingStore {
	return &MockBookingStore{trips: trips, sessions: sessions}
}

func (m *MockBookingStore) ConfirmBooking(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	if m.ConfirmError != nil {
		return m.ConfirmError
	}
	if err := m.trips.Create(ctx, trip); err != nil {
		return err
	}
	return m.sessions.Delete(ctx, trip.PassengerChatID)
}

// ──────────────────────────────────────────────
// MOCK DEDUP STORE
// ──────────────────────────────────────────────

// MockDedupStore is an in-memory idempotency gate.
type MockDedupStore struct {
	mu   sync.Mutex
	seen map[string]bool

	SeenCallCount   int32
	RecordCallCount int32

	SeenError   error
	RecordError error
}

// NewMockDedupStore creates a new mock dedup store.
func NewMockDedupStore() *MockDedupStore {
	return &MockDedupStore{seen: make(map[string]bool)}
}

func (m *MockDedupStore) Seen(ctx context.Context, eventID string) (bool, error) {
	atomic.AddInt32(&m.SeenCallCount, 1)
	if m.SeenError != nil {
		return false, m.SeenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[eventID], nil
}

func (m *MockDedupStore) Record(ctx context.Context, eventID string) error {
	atomic.AddInt32(&m.RecordCallCount, 1)
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[eventID] = true
	return nil
}

// ──────────────────────────────────────────────
// MOCK PROFILE STORE
// ──────────────────────────────────────────────

// MockProfileStore is an in-memory saved-phone store.
type MockProfileStore struct {
	mu     sync.RWMutex
	phones map[int64]string
}

// NewMockProfileStore creates a new mock profile store.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{phones: make(map[int64]string)}
}

func (m *MockProfileStore) GetPhone(ctx context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phones[chatID], nil
}

func (m *MockProfileStore) SetPhone(ctx context.Context, chatID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phones[chatID] = phone
	return nil
}

// ──────────────────────────────────────────────
// MOCK PROMPT STORE
// ──────────────────────────────────────────────

// MockPromptStore records driver fan-out prompts and declines.
type MockPromptStore struct {
	mu       sync.Mutex
	prompts  map[string]map[int64]int64
	declines map[string]map[int64]bool

	ClearCallCount int32
}

// NewMockPromptStore creates a new mock prompt store.
func NewMockPromptStore() *MockPromptStore {
	return &MockPromptStore{
		prompts:  make(map[string]map[int64]int64),
		declines: make(map[string]map[int64]bool),
	}
}

func (m *MockPromptStore) RecordPrompt(ctx context.Context, tripID string, driverChatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prompts[tripID] == nil {
		m.prompts[tripID] = make(map[int64]int64)
	}
	m.prompts[tripID][driverChatID] = messageID
	return nil
}

func (m *MockPromptStore) Prompts(ctx context.Context, tripID string) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int64, len(m.prompts[tripID]))
	for k, v := range m.prompts[tripID] {
		out[k] = v
	}
	return out, nil
}

func (m *MockPromptStore) RecordDecline(ctx context.Context, tripID string, driverChatID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.declines[tripID] == nil {
		m.declines[tripID] = make(map[int64]bool)
	}
	m.declines[tripID][driverChatID] = true
	return int64(len(m.declines[tripID])), nil
}

func (m *MockPromptStore) Clear(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.ClearCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prompts, tripID)
	delete(m.declines, tripID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// SentMessage captures one outbound send for assertions.
type SentMessage struct {
	ChatID int64
	Text   string
	Markup *telegram.Markup
}

// EditedMessage captures one outbound edit.
type EditedMessage struct {
	ChatID    int64
	MessageID int64
	Text      string
}

// MockNotifier records every outbound message instead of delivering it.
type MockNotifier struct {
	mu     sync.Mutex
	sent   []SentMessage
	edited []EditedMessage
	nextID int64

	SendError  error
	EditError  error
	ClearError error

	ClearCallCount int32
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(ctx context.Context, chatID int64, text string, markup *telegram.Markup) (int64, error) {
	if m.SendError != nil {
		return 0, m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text, Markup: markup})
	return m.nextID, nil
}

func (m *MockNotifier) EditText(ctx context.Context, chatID, messageID int64, text string) error {
	if m.EditError != nil {
		return m.EditError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited = append(m.edited, EditedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (m *MockNotifier) ClearKeyboard(ctx context.Context, chatID, messageID int64) error {
	atomic.AddInt32(&m.ClearCallCount, 1)
	return m.ClearError
}

func (m *MockNotifier) SetCommands(ctx context.Context) error {
	return nil
}

// Sent returns a snapshot of all recorded sends.
func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the sends addressed to one chat.
func (m *MockNotifier) SentTo(chatID int64) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// Edited returns a snapshot of all recorded edits.
func (m *MockNotifier) Edited() []EditedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EditedMessage, len(m.edited))
	copy(out, m.edited)
	return out
}

// ──────────────────────────────────────────────
// MOCK ROUTE PROVIDER
// ──────────────────────────────────────────────

// MockRouteProvider returns a canned leg or a canned error.
type MockRouteProvider struct {
	Leg   *route.Leg
	Err   error
	Calls int32
}

// NewMockRouteProvider creates a provider returning leg for every query.
func NewMockRouteProvider(leg *route.Leg) *MockRouteProvider {
	return &MockRouteProvider{Leg: leg}
}

func (m *MockRouteProvider) Route(ctx context.Context, pickupText, dropoffText string) (*route.Leg, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.Err != nil {
		return nil, m.Err
	}
	copy := *m.Leg
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK DISPATCHER
// ──────────────────────────────────────────────

// MockDispatcher records dispatched trips.
type MockDispatcher struct {
	mu         sync.Mutex
	dispatched []string

	DispatchError error
}

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(ctx context.Context, trip *domain.Trip) error {
	if m.DispatchError != nil {
		return m.DispatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched = append(m.dispatched, trip.ID)
	return nil
}

// Dispatched returns the IDs of dispatched trips.
func (m *MockDispatcher) Dispatched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.dispatched))
	copy(out, m.dispatched)
	return out
}

package payments

import (
	"net/url"
	"strings"
	"time"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/app/repository"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/payfast"
	"gorm.io/gorm"
)

// In-memory fakes for the repository interfaces. They mirror the semantics
// the GORM implementations rely on, in particular the guarded status
// transition and gorm.ErrRecordNotFound on missing rows.

type fakePaymentRepo struct {
	payments map[string]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*models.Payment{}}
}

func (r *fakePaymentRepo) Create(p *models.Payment) error {
	if _, ok := r.payments[p.PaymentID]; ok {
		return gorm.ErrDuplicatedKey
	}
	stored := *p
	stored.ID = uint(len(r.payments) + 1)
	stored.CreatedAt = time.Now()
	r.payments[p.PaymentID] = &stored
	*p = stored
	return nil
}

func (r *fakePaymentRepo) GetByPaymentID(paymentID string) (*models.Payment, error) {
	stored, ok := r.payments[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakePaymentRepo) GetByPaymentIDs(paymentIDs []string) ([]models.Payment, error) {
	var out []models.Payment
	for _, id := range paymentIDs {
		if stored, ok := r.payments[id]; ok {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) TransitionStatus(paymentID string, update repository.StatusUpdate) (*models.Payment, bool, error) {
	stored, ok := r.payments[paymentID]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}
	if stored.IsTerminal() {
		copied := *stored
		return &copied, false, nil
	}
	stored.Status = update.Status
	stored.ProviderStatus = update.ProviderStatus
	stored.Signature = update.Signature
	stored.RawNotification = update.RawNotification
	if update.ProviderPaymentID != nil {
		stored.ProviderPaymentID = update.ProviderPaymentID
	}
	if update.AmountGross != nil {
		stored.AmountGross = update.AmountGross
	}
	if update.AmountFee != nil {
		stored.AmountFee = update.AmountFee
	}
	if update.AmountNet != nil {
		stored.AmountNet = update.AmountNet
	}
	if update.PaidAt != nil {
		stored.PaidAt = update.PaidAt
	}
	copied := *stored
	return &copied, true, nil
}

func (r *fakePaymentRepo) SetPendingEntries(paymentID string, pendingJSON string) error {
	stored, ok := r.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.PendingEntries = pendingJSON
	return nil
}

type fakePaymentLogRepo struct {
	logs []models.PaymentLog
}

func (r *fakePaymentLogRepo) Append(entry *models.PaymentLog) error {
	entry.ID = uint(len(r.logs) + 1)
	entry.CreatedAt = time.Now()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *fakePaymentLogRepo) ListByPaymentID(paymentID string, limit int) ([]models.PaymentLog, error) {
	var out []models.PaymentLog
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].PaymentID == paymentID {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}

func (r *fakePaymentLogRepo) countByType(paymentID, eventType string) int {
	n := 0
	for _, entry := range r.logs {
		if entry.PaymentID == paymentID && entry.EventType == eventType {
			n++
		}
	}
	return n
}

type fakeEntryRepo struct {
	entries map[uint]*models.EventEntry
	nextID  uint
	// failOnItemName makes Create fail for a specific item, to exercise
	// partial batch failures.
	failOnItemName string
	// failMarkPaidOnce makes the next MarkPaidByPaymentID call fail, to
	// exercise a status transition that outlives its cascade.
	failMarkPaidOnce bool
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: map[uint]*models.EventEntry{}, nextID: 1}
}

func (r *fakeEntryRepo) Create(entry *models.EventEntry) error {
	if r.failOnItemName != "" && entry.ItemName == r.failOnItemName {
		return gorm.ErrInvalidData
	}
	entry.ID = r.nextID
	r.nextID++
	stored := *entry
	r.entries[entry.ID] = &stored
	return nil
}

func (r *fakeEntryRepo) GetByID(id uint) (*models.EventEntry, error) {
	stored, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeEntryRepo) GetByPaymentID(paymentID string) ([]models.EventEntry, error) {
	var out []models.EventEntry
	for id := uint(1); id < r.nextID; id++ {
		stored, ok := r.entries[id]
		if !ok {
			continue
		}
		if stored.PaymentID != nil && *stored.PaymentID == paymentID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) UpdatePaymentFields(entryID uint, paymentID *string, paymentStatus string) error {
	stored, ok := r.entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.PaymentID = paymentID
	stored.PaymentStatus = paymentStatus
	return nil
}

func (r *fakeEntryRepo) MarkPaidByPaymentID(paymentID string, approvedAt time.Time) error {
	if r.failMarkPaidOnce {
		r.failMarkPaidOnce = false
		return gorm.ErrInvalidTransaction
	}
	for _, stored := range r.entries {
		if stored.PaymentID != nil && *stored.PaymentID == paymentID {
			stored.PaymentStatus = models.EntryPaymentPaid
			stored.Approved = true
			stored.ApprovedAt = &approvedAt
		}
	}
	return nil
}

func (r *fakeEntryRepo) SetPaymentStatusByPaymentID(paymentID string, paymentStatus string) error {
	for _, stored := range r.entries {
		if stored.PaymentID != nil && *stored.PaymentID == paymentID {
			stored.PaymentStatus = paymentStatus
		}
	}
	return nil
}

type fakeEventRepo struct {
	events map[uint]*models.Event
}

func (r *fakeEventRepo) GetByID(id uint) (*models.Event, error) {
	stored, ok := r.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	stored, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

type fakeLocker struct {
	busy     bool
	acquired []string
	released []string
}

func (l *fakeLocker) Acquire(key string, ttl time.Duration) (bool, error) {
	if l.busy {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLocker) Release(key string) {
	l.released = append(l.released, key)
}

type testEnv struct {
	svc      *Service
	payments *fakePaymentRepo
	logs     *fakePaymentLogRepo
	entries  *fakeEntryRepo
	events   *fakeEventRepo
	users    *fakeUserRepo
	locker   *fakeLocker
	client   *payfast.Client
	now      time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		payments: newFakePaymentRepo(),
		logs:     &fakePaymentLogRepo{},
		entries:  newFakeEntryRepo(),
		events: &fakeEventRepo{events: map[uint]*models.Event{
			7: {ID: 7, Name: "Winter Showcase", RequiresPayment: true},
			8: {ID: 8, Name: "Free Workshop", RequiresPayment: false},
		}},
		users: &fakeUserRepo{users: map[uint]*models.User{
			42: {ID: 42, FirstName: "Anna", LastName: "Smit", Email: "anna@example.com"},
		}},
		locker: &fakeLocker{},
		client: &payfast.Client{
			MerchantID:  "10000100",
			MerchantKey: "46f0cd694581a",
			Passphrase:  "jt7NOE43FZPn",
			Sandbox:     true,
			ReturnURL:   "https://stagepass.test/payments/return",
			CancelURL:   "https://stagepass.test/payments/cancel",
			NotifyURL:   "https://stagepass.test/payments/webhook",
		},
		now: time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}

	repos := &repository.Repositories{
		Payment:    env.payments,
		PaymentLog: env.logs,
		EventEntry: env.entries,
		Event:      env.events,
		User:       env.users,
	}
	env.svc = NewService(repos, env.client, payfast.ParseAllowList("197.97.145.144, 41.74.179.0/24"), env.locker)
	env.svc.now = func() time.Time { return env.now }
	return env
}

// itnBody serializes ordered fields the way the provider posts them.
func itnBody(fields []payfast.Field) []byte {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+url.QueryEscape(f.Value))
	}
	return []byte(strings.Join(parts, "&"))
}

// signedITN builds a valid COMPLETE-style notification body for a payment.
func (env *testEnv) signedITN(paymentID, status, gross string) []byte {
	fields := []payfast.Field{
		{Key: "m_payment_id", Value: paymentID},
		{Key: "pf_payment_id", Value: "998877"},
		{Key: "payment_status", Value: status},
		{Key: "amount_gross", Value: gross},
		{Key: "amount_fee", Value: "-11.90"},
		{Key: "amount_net", Value: "505.60"},
		{Key: "merchant_id", Value: env.client.MerchantID},
	}
	fields = append(fields, payfast.Field{Key: "signature", Value: payfast.Sign(fields, env.client.Passphrase)})
	return itnBody(fields)
}

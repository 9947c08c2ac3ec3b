package checkout

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/auth"
	lineitems "github.com/artfolio/storefront-backend/pkg/checkout"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

// commitCall is the in-flight persistence attempt overlapping commits join.
type commitCall struct {
	done    chan struct{}
	orderID uuid.UUID
	err     error
}

type commitState struct {
	status   enums.CommitStatus
	orderID  uuid.UUID
	err      error
	inflight *commitCall
	history  []enums.CommitStatus
}

// notificationOutcome records the last confirmation dispatch. It never feeds
// back into the commit state.
type notificationOutcome struct {
	attempted bool
	err       error
	at        time.Time
}

// Session is one customer's in-memory checkout. All fields are guarded by mu;
// no I/O happens while mu is held.
type Session struct {
	mu sync.Mutex

	id    uuid.UUID
	owner auth.Identity
	mode  enums.CheckoutMode

	step     enums.CheckoutStep
	items    []LineItem
	delivery *DeliveryInfo
	payment  *PaymentSelection

	commit       commitState
	notification notificationOutcome
	selectionErr error

	createdAt time.Time
	updatedAt time.Time
	lastSeen  time.Time
}

func newSession(owner auth.Identity, mode enums.CheckoutMode, items []LineItem, selectionErr error, now time.Time) *Session {
	return &Session{
		id:           uuid.New(),
		owner:        owner,
		mode:         mode,
		step:         enums.CheckoutStepReview,
		items:        items,
		selectionErr: selectionErr,
		commit: commitState{
			status:  enums.CommitStatusIdle,
			history: []enums.CommitStatus{enums.CommitStatusIdle},
		},
		createdAt: now,
		updatedAt: now,
		lastSeen:  now,
	}
}

// ID is fixed at creation.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Owner is the identity that started the session.
func (s *Session) Owner() auth.Identity {
	return s.owner
}

// Step returns the current step.
func (s *Session) Step() enums.CheckoutStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// CommitStatus returns the current commit latch state.
func (s *Session) CommitStatus() enums.CommitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit.status
}

// CommitHistory returns every commit status the session has passed through.
func (s *Session) CommitHistory() []enums.CommitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]enums.CommitStatus(nil), s.commit.history...)
}

// Notification reports whether a confirmation dispatch ran and how it ended.
func (s *Session) Notification() (attempted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notification.attempted, s.notification.err
}

// Subtotal is recomputed from the line items on every call.
func (s *Session) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtotalLocked()
}

func (s *Session) subtotalLocked() decimal.Decimal {
	return lineitems.Subtotal(s.lineItemInputsLocked())
}

func (s *Session) lineItemInputsLocked() []lineitems.LineItemInput {
	inputs := make([]lineitems.LineItemInput, 0, len(s.items))
	for _, item := range s.items {
		inputs = append(inputs, lineitems.LineItemInput{
			ProductID: item.ProductID,
			Title:     item.Snapshot.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return inputs
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) setStatusLocked(status enums.CommitStatus) {
	s.commit.status = status
	s.commit.history = append(s.commit.history, status)
}

func (s *Session) changedLocked(now time.Time) {
	s.updatedAt = now
	s.lastSeen = now
}

// advance moves review→shipping or shipping→payment. It reports commit=true
// when the session is at payment or confirmation, where moving forward is the
// commit guard's job.
func (s *Session) advance(now time.Time) (commit bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case enums.CheckoutStepReview:
		if len(s.items) == 0 {
			msg := "no purchasable items to check out"
			if typed := pkgerrors.As(s.selectionErr); typed != nil {
				msg = typed.Message()
			}
			return false, emptySelection(msg)
		}
		s.step = enums.CheckoutStepShipping
		s.changedLocked(now)
		return false, nil
	case enums.CheckoutStepShipping:
		if err := ValidateDelivery(s.delivery); err != nil {
			return false, err
		}
		d := s.delivery.trimmed()
		s.delivery = &d
		s.step = enums.CheckoutStepPayment
		s.changedLocked(now)
		return false, nil
	case enums.CheckoutStepPayment, enums.CheckoutStepConfirmation:
		return true, nil
	}
	return false, invalidTransition("advance", s.step)
}

// retreat supports only payment→shipping.
func (s *Session) retreat(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != enums.CheckoutStepPayment {
		return invalidTransition("retreat", s.step)
	}
	if s.commit.status == enums.CommitStatusSaving {
		return savingConflict()
	}
	s.step = enums.CheckoutStepShipping
	s.changedLocked(now)
	return nil
}

func (s *Session) applyDelivery(patch DeliveryPatch, now time.Time) error {
	var preference *enums.ContactMethod
	if patch.CommunicationPreference != nil {
		raw := strings.TrimSpace(*patch.CommunicationPreference)
		method := enums.ContactMethod("")
		if raw != "" {
			parsed, err := enums.ParseContactMethod(raw)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid communication preference").WithDetails(map[string]string{
					"communication_preference": "is invalid",
				})
			}
			method = parsed
		}
		preference = &method
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != enums.CheckoutStepShipping {
		return invalidTransition("update_delivery", s.step)
	}

	next := DeliveryInfo{}
	if s.delivery != nil {
		next = *s.delivery
	}
	mergeString(&next.FirstName, patch.FirstName)
	mergeString(&next.LastName, patch.LastName)
	mergeString(&next.Address, patch.Address)
	mergeString(&next.City, patch.City)
	mergeString(&next.State, patch.State)
	mergeString(&next.ZipCode, patch.ZipCode)
	mergeString(&next.Phone, patch.Phone)
	mergeString(&next.CommunicationContact, patch.CommunicationContact)
	if preference != nil {
		next.CommunicationPreference = *preference
	}
	s.delivery = &next
	s.changedLocked(now)
	return nil
}

func (s *Session) applyPayment(patch PaymentPatch, now time.Time) error {
	var method *enums.PaymentMethod
	if patch.Method != nil {
		parsed, err := enums.ParsePaymentMethod(strings.TrimSpace(*patch.Method))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").WithDetails(map[string]string{
				"method": "must be one of crypto, online, mixed",
			})
		}
		method = &parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != enums.CheckoutStepPayment {
		return invalidTransition("update_payment", s.step)
	}
	if s.commit.status == enums.CommitStatusSaving {
		return savingConflict()
	}

	next := PaymentSelection{}
	if s.payment != nil {
		next = *s.payment
	}
	if method != nil {
		next.Method = *method
	}
	mergeString(&next.Notes, patch.Notes)
	s.payment = &next
	s.changedLocked(now)
	return nil
}

func (s *Session) recordNotification(err error, now time.Time) {
	s.mu.Lock()
	s.notification = notificationOutcome{attempted: true, err: err, at: now}
	s.mu.Unlock()
}

// View snapshots the session for clients.
func (s *Session) View(currency enums.Currency) SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := append([]LineItem{}, s.items...)
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	view := SessionView{
		ID:        s.id,
		Mode:      s.mode,
		Step:      s.step,
		Items:     items,
		ItemCount: count,
		Subtotal:  s.subtotalLocked(),
		Currency:  currency,
		Commit: CommitView{
			Status:  s.commit.status,
			History: append([]enums.CommitStatus(nil), s.commit.history...),
		},
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.delivery != nil {
		d := *s.delivery
		view.Delivery = &d
	}
	if s.payment != nil {
		p := *s.payment
		view.Payment = &p
	}
	if s.commit.status == enums.CommitStatusSaved {
		id := s.commit.orderID
		view.Commit.OrderID = &id
	}
	if s.commit.status == enums.CommitStatusFailed && s.commit.err != nil {
		view.Commit.Error = publicMessage(s.commit.err)
	}
	if s.selectionErr != nil {
		view.SelectionError = publicMessage(s.selectionErr)
	}
	return view
}

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func savingConflict() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is being saved")
}

func publicMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage
	}
	return pkgerrors.MetadataFor(typed.Code()).PublicMessage
}

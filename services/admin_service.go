package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/monitoring"
	"flux-parties/repo"
	"flux-parties/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminService covers wave configuration, the expense ledger, guest deletion
// and the financial summary behind the admin dashboard.
type AdminService struct {
	repo   *repo.Repo
	guests *GuestService
	logger *slog.Logger
}

func NewAdminService(r *repo.Repo, guests *GuestService, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{repo: r, guests: guests, logger: logger}
}

func (s *AdminService) ListWaves(ctx context.Context) ([]models.Wave, error) {
	return s.repo.Waves.List()
}

// UpdateWave replaces the wave with the same id. The sold count is stored as
// given: callers edit price, deduction, name and capacity, and must not hand
// it an inconsistent sold_count.
func (s *AdminService) UpdateWave(ctx context.Context, wave models.Wave) error {
	return s.repo.Store.WithLock(func() error {
		matched, err := s.repo.Waves.Update(
			func(w models.Wave) bool { return w.ID == wave.ID },
			func(models.Wave) models.Wave { return wave },
		)
		if err != nil {
			return err
		}
		if matched == 0 {
			return fmt.Errorf("%w: wave %s", status.ErrNotFound, wave.ID)
		}
		monitoring.SetWaveSold(wave.ID, wave.SoldCount)
		return nil
	})
}

// SetActiveWave flips the given wave active and every other wave inactive.
// This is the only place the one-active-wave invariant is enforced.
func (s *AdminService) SetActiveWave(ctx context.Context, id string) error {
	return s.repo.Store.WithLock(func() error {
		waves, err := s.repo.Waves.List()
		if err != nil {
			return err
		}
		found := false
		for i := range waves {
			waves[i].Active = waves[i].ID == id
			found = found || waves[i].Active
		}
		if !found {
			return fmt.Errorf("%w: wave %s", status.ErrNotFound, id)
		}
		return s.repo.Waves.Save(waves)
	})
}

// UpdateGuest rewrites the editable parts of a guest: the profile on the user
// row, the lifecycle flags on the status row, and the payment row. Tokens and
// the wave linkage are immutable; the three rows land in one commit.
func (s *AdminService) UpdateGuest(ctx context.Context, guest models.Guest) error {
	guest.Name = strings.TrimSpace(guest.Name)
	guest.Instagram = strings.TrimSpace(guest.Instagram)
	guest.Phone = strings.TrimSpace(guest.Phone)
	if guest.Name == "" || guest.Instagram == "" || guest.Phone == "" {
		return fmt.Errorf("%w: name, instagram and phone are required", status.ErrValidation)
	}
	if !guest.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", status.ErrValidation, guest.Method)
	}

	return s.repo.Store.WithLock(func() error {
		tickets, err := s.repo.Tickets.List()
		if err != nil {
			return err
		}
		var ticket models.Ticket
		found := false
		for _, t := range tickets {
			if t.ID == guest.TicketID {
				ticket, found = t, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: ticket %s", status.ErrNotFound, guest.TicketID)
		}

		snapshot, err := s.repo.Store.ReadTables(
			store.TableUsers, store.TableStatus, store.TablePayments,
		)
		if err != nil {
			return err
		}
		users, err := repo.DecodeRows[models.User](store.TableUsers, snapshot)
		if err != nil {
			return err
		}
		statuses, err := repo.DecodeRows[models.TicketStatus](store.TableStatus, snapshot)
		if err != nil {
			return err
		}
		payments, err := repo.DecodeRows[models.Payment](store.TablePayments, snapshot)
		if err != nil {
			return err
		}

		userIdx, stIdx, payIdx := -1, -1, -1
		for i, u := range users {
			if u.ID == ticket.UserID {
				userIdx = i
				break
			}
		}
		for i, st := range statuses {
			if st.TicketID == ticket.ID {
				stIdx = i
				break
			}
		}
		for i, p := range payments {
			if p.TicketID == ticket.ID {
				payIdx = i
				break
			}
		}
		if userIdx < 0 {
			return fmt.Errorf("%w: ticket %s has no %s row", status.ErrBrokenLink, ticket.ID, store.TableUsers)
		}
		if stIdx < 0 {
			return fmt.Errorf("%w: ticket %s has no %s row", status.ErrBrokenLink, ticket.ID, store.TableStatus)
		}
		if payIdx < 0 {
			return fmt.Errorf("%w: ticket %s has no %s row", status.ErrBrokenLink, ticket.ID, store.TablePayments)
		}

		users[userIdx].Name = guest.Name
		users[userIdx].Instagram = guest.Instagram
		users[userIdx].Phone = guest.Phone

		statuses[stIdx].Approved = guest.Approved
		statuses[stIdx].CheckedIn = guest.CheckedIn
		statuses[stIdx].CheckinTime = guest.CheckinTime
		statuses[stIdx].CheckedOut = guest.CheckedOut
		statuses[stIdx].CheckoutTime = guest.CheckoutTime
		statuses[stIdx].ScanCount = guest.ScanCount

		payments[payIdx].Method = guest.Method
		payments[payIdx].AmountDue = guest.AmountDue
		payments[payIdx].AmountPaid = guest.AmountPaid
		payments[payIdx].ProofRef = guest.ProofRef

		batch := store.Batch{}
		if err := s.repo.Users.Stage(batch, users); err != nil {
			return err
		}
		if err := s.repo.Status.Stage(batch, statuses); err != nil {
			return err
		}
		if err := s.repo.Payments.Stage(batch, payments); err != nil {
			return err
		}
		return s.repo.Store.WriteTables(batch)
	})
}

// DeleteGuest removes the ticket and its four linked rows and gives the seat
// back to the wave, all in one commit. The sold count is floored at zero; the
// floor tripping means the counter had already drifted, which is logged.
func (s *AdminService) DeleteGuest(ctx context.Context, ticketID string) error {
	return s.repo.Store.WithLock(func() error {
		snapshot, err := s.repo.Store.ReadTables(
			store.TableTickets, store.TableUsers, store.TableSecurity,
			store.TableStatus, store.TablePayments, store.TableWaves,
		)
		if err != nil {
			return err
		}
		tickets, err := repo.DecodeRows[models.Ticket](store.TableTickets, snapshot)
		if err != nil {
			return err
		}

		var ticket models.Ticket
		found := false
		kept := tickets[:0]
		for _, t := range tickets {
			if t.ID == ticketID {
				ticket, found = t, true
				continue
			}
			kept = append(kept, t)
		}
		if !found {
			return fmt.Errorf("%w: ticket %s", status.ErrNotFound, ticketID)
		}

		users, err := repo.DecodeRows[models.User](store.TableUsers, snapshot)
		if err != nil {
			return err
		}
		security, err := repo.DecodeRows[models.TicketSecurity](store.TableSecurity, snapshot)
		if err != nil {
			return err
		}
		statuses, err := repo.DecodeRows[models.TicketStatus](store.TableStatus, snapshot)
		if err != nil {
			return err
		}
		payments, err := repo.DecodeRows[models.Payment](store.TablePayments, snapshot)
		if err != nil {
			return err
		}
		waves, err := repo.DecodeRows[models.Wave](store.TableWaves, snapshot)
		if err != nil {
			return err
		}

		users = deleteWhere(users, func(u models.User) bool { return u.ID == ticket.UserID })
		security = deleteWhere(security, func(r models.TicketSecurity) bool { return r.TicketID == ticketID })
		statuses = deleteWhere(statuses, func(r models.TicketStatus) bool { return r.TicketID == ticketID })
		payments = deleteWhere(payments, func(r models.Payment) bool { return r.TicketID == ticketID })

		for i := range waves {
			if waves[i].ID != ticket.WaveID {
				continue
			}
			if waves[i].SoldCount <= 0 {
				s.logger.Warn("sold count already zero on guest delete; counter had drifted",
					"wave", waves[i].ID, "ticket", ticketID)
			} else {
				waves[i].SoldCount--
			}
			monitoring.SetWaveSold(waves[i].ID, waves[i].SoldCount)
		}

		batch := store.Batch{}
		if err := s.repo.Tickets.Stage(batch, kept); err != nil {
			return err
		}
		if err := s.repo.Users.Stage(batch, users); err != nil {
			return err
		}
		if err := s.repo.Security.Stage(batch, security); err != nil {
			return err
		}
		if err := s.repo.Status.Stage(batch, statuses); err != nil {
			return err
		}
		if err := s.repo.Payments.Stage(batch, payments); err != nil {
			return err
		}
		if err := s.repo.Waves.Stage(batch, waves); err != nil {
			return err
		}
		return s.repo.Store.WriteTables(batch)
	})
}

// ClearGuests wipes the five guest tables and zeroes every wave's sold count.
func (s *AdminService) ClearGuests(ctx context.Context) error {
	return s.repo.Store.WithLock(func() error {
		waves, err := s.repo.Waves.List()
		if err != nil {
			return err
		}
		for i := range waves {
			waves[i].SoldCount = 0
			monitoring.SetWaveSold(waves[i].ID, 0)
		}

		batch := store.Batch{}
		if err := s.repo.Tickets.Stage(batch, nil); err != nil {
			return err
		}
		if err := s.repo.Users.Stage(batch, nil); err != nil {
			return err
		}
		if err := s.repo.Security.Stage(batch, nil); err != nil {
			return err
		}
		if err := s.repo.Status.Stage(batch, nil); err != nil {
			return err
		}
		if err := s.repo.Payments.Stage(batch, nil); err != nil {
			return err
		}
		if err := s.repo.Waves.Stage(batch, waves); err != nil {
			return err
		}
		return s.repo.Store.WriteTables(batch)
	})
}

func (s *AdminService) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	return s.repo.Expenses.List()
}

func (s *AdminService) AddExpense(ctx context.Context, kind string, amount decimal.Decimal, note string) (models.Expense, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return models.Expense{}, fmt.Errorf("%w: expense type is required", status.ErrValidation)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.Expense{}, fmt.Errorf("%w: expense amount must be positive", status.ErrValidation)
	}

	expense := models.Expense{
		ID:        uuid.NewString(),
		Type:      kind,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now().UTC(),
	}
	err := s.repo.Store.WithLock(func() error {
		return s.repo.Expenses.Append(expense)
	})
	if err != nil {
		return models.Expense{}, err
	}
	return expense, nil
}

func (s *AdminService) DeleteExpense(ctx context.Context, id string) error {
	return s.repo.Store.WithLock(func() error {
		removed, err := s.repo.Expenses.Remove(func(e models.Expense) bool { return e.ID == id })
		if err != nil {
			return err
		}
		if removed == 0 {
			return fmt.Errorf("%w: expense %s", status.ErrNotFound, id)
		}
		return nil
	})
}

func (s *AdminService) ClearExpenses(ctx context.Context) error {
	return s.repo.Store.WithLock(func() error {
		return s.repo.Expenses.Save(nil)
	})
}

// Summary is the dashboard roll-up. Profit aggregates count approved guests
// only; unapproved money is not yet anyone's.
type Summary struct {
	GuestCount    int             `json:"guest_count"`
	ApprovedCount int             `json:"approved_count"`
	CheckedIn     int             `json:"checked_in"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	MisarahProfit decimal.Decimal `json:"misarah_profit"`
	DomzProfit    decimal.Decimal `json:"domz_profit"`
	SateaProfit   decimal.Decimal `json:"satea_profit"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
}

func (s *AdminService) Summarize(ctx context.Context) (Summary, error) {
	guests, err := s.guests.ListGuests()
	if err != nil {
		return Summary{}, err
	}
	expenses, err := s.repo.Expenses.List()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		TotalDue:      decimal.Zero,
		TotalPaid:     decimal.Zero,
		MisarahProfit: decimal.Zero,
		DomzProfit:    decimal.Zero,
		SateaProfit:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, g := range guests {
		sum.GuestCount++
		sum.TotalDue = sum.TotalDue.Add(g.AmountDue)
		sum.TotalPaid = sum.TotalPaid.Add(g.AmountPaid)
		if g.CheckedIn {
			sum.CheckedIn++
		}
		if !g.Approved {
			continue
		}
		sum.ApprovedCount++
		sum.MisarahProfit = sum.MisarahProfit.Add(g.MisarahProfit)
		sum.DomzProfit = sum.DomzProfit.Add(g.DomzProfit)
		sum.SateaProfit = sum.SateaProfit.Add(g.SateaProfit)
	}
	for _, e := range expenses {
		sum.TotalExpenses = sum.TotalExpenses.Add(e.Amount)
	}
	return sum, nil
}

func deleteWhere[T any](rows []T, pred func(T) bool) []T {
	kept := rows[:0]
	for _, row := range rows {
		if !pred(row) {
			kept = append(kept, row)
		}
	}
	return kept
}

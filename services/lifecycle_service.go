package services

import (
	"context"
	"fmt"
	"time"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/monitoring"
	"flux-parties/repo"
	"flux-parties/store"
)

const (
	directionIn  = "checkin"
	directionOut = "checkout"
)

// Alerter fans security-relevant scan outcomes out to whoever is watching the
// door dashboards. Implementations must not block scanning.
type Alerter interface {
	ScanAlert(ctx context.Context, direction string, guest models.Guest, res models.ScanResult)
}

// LifecycleService drives the per-ticket state machine: pending -> approved,
// then not-in -> in -> out via door scans.
type LifecycleService struct {
	repo   *repo.Repo
	guests *GuestService
	alerts Alerter
}

func NewLifecycleService(r *repo.Repo, guests *GuestService, alerts Alerter) *LifecycleService {
	return &LifecycleService{repo: r, guests: guests, alerts: alerts}
}

// Approve marks payment as received: approved flag on the status row and
// amount_paid = amount_due on the payment row, committed together. Approving
// an already-approved ticket is a no-op.
func (s *LifecycleService) Approve(ctx context.Context, ticketID string) error {
	return s.repo.Store.WithLock(func() error {
		snapshot, err := s.repo.Store.ReadTables(store.TableTickets, store.TableStatus, store.TablePayments)
		if err != nil {
			return err
		}
		tickets, err := repo.DecodeRows[models.Ticket](store.TableTickets, snapshot)
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

		// An id with no ticket row is an unknown ticket; a ticket row whose
		// linked rows are missing is a referential-integrity fault.
		known := false
		for _, t := range tickets {
			if t.ID == ticketID {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: ticket %s", status.ErrNotFound, ticketID)
		}

		stIdx, payIdx := -1, -1
		for i, st := range statuses {
			if st.TicketID == ticketID {
				stIdx = i
				break
			}
		}
		for i, p := range payments {
			if p.TicketID == ticketID {
				payIdx = i
				break
			}
		}
		if stIdx < 0 {
			return fmt.Errorf("%w: ticket %s has no status row", status.ErrBrokenLink, ticketID)
		}
		if payIdx < 0 {
			return fmt.Errorf("%w: ticket %s has no payments row", status.ErrBrokenLink, ticketID)
		}
		if statuses[stIdx].Approved {
			return nil
		}

		statuses[stIdx].Approved = true
		payments[payIdx].AmountPaid = payments[payIdx].AmountDue

		batch := store.Batch{}
		if err := s.repo.Status.Stage(batch, statuses); err != nil {
			return err
		}
		if err := s.repo.Payments.Stage(batch, payments); err != nil {
			return err
		}
		return s.repo.Store.WriteTables(batch)
	})
}

// CheckIn consumes an entry scan. The ScanResult is always populated, success
// or failure; the error carries the matching sentinel for programmatic
// callers. Reuse=true means this token's entry already happened.
func (s *LifecycleService) CheckIn(ctx context.Context, token string) (models.ScanResult, error) {
	res, guest, err := s.scan(ctx, directionIn, token)
	s.report(ctx, directionIn, guest, res)
	return res, err
}

// CheckOut consumes an exit scan.
func (s *LifecycleService) CheckOut(ctx context.Context, token string) (models.ScanResult, error) {
	res, guest, err := s.scan(ctx, directionOut, token)
	s.report(ctx, directionOut, guest, res)
	return res, err
}

func (s *LifecycleService) scan(ctx context.Context, direction, token string) (models.ScanResult, models.Guest, error) {
	clean := CleanToken(token)

	var res models.ScanResult
	var guest models.Guest
	var scanErr error

	// The whole lookup-validate-mutate cycle runs under the store lock so
	// the second of two simultaneous scans always sees the first one's write.
	err := s.repo.Store.WithLock(func() error {
		guests, err := s.guests.ListGuests()
		if err != nil {
			return err
		}

		found := false
		for _, g := range guests {
			if matchesDirection(g, direction, clean) {
				guest, found = g, true
				break
			}
		}
		if !found {
			res = models.ScanResult{Message: invalidMessage(direction)}
			scanErr = fmt.Errorf("%w: %q", status.ErrInvalidToken, clean)
			return nil
		}

		switch direction {
		case directionIn:
			if !guest.Approved {
				res = models.ScanResult{Message: "Payment not approved"}
				scanErr = fmt.Errorf("%w: ticket %s", status.ErrPaymentNotApproved, guest.TicketID)
				return nil
			}
			if guest.CheckedIn {
				res = models.ScanResult{Message: fmt.Sprintf("ALREADY IN: guest #%d", guest.Number), Reuse: true}
				scanErr = fmt.Errorf("%w: ticket %s already checked in", status.ErrDuplicateScan, guest.TicketID)
				return nil
			}
		case directionOut:
			if !guest.CheckedIn {
				res = models.ScanResult{Message: "Guest not checked in"}
				scanErr = fmt.Errorf("%w: ticket %s", status.ErrNotCheckedIn, guest.TicketID)
				return nil
			}
			if guest.CheckedOut {
				res = models.ScanResult{Message: fmt.Sprintf("ALREADY OUT: guest #%d", guest.Number), Reuse: true}
				scanErr = fmt.Errorf("%w: ticket %s already checked out", status.ErrDuplicateScan, guest.TicketID)
				return nil
			}
		}

		now := time.Now().UTC()
		_, err = s.repo.Status.Update(
			func(st models.TicketStatus) bool { return st.TicketID == guest.TicketID },
			func(st models.TicketStatus) models.TicketStatus {
				if direction == directionIn {
					st.CheckedIn = true
					st.CheckinTime = &now
					st.ScanCount++
				} else {
					st.CheckedOut = true
					st.CheckoutTime = &now
				}
				return st
			},
		)
		if err != nil {
			return err
		}

		res = models.ScanResult{OK: true, Message: okMessage(direction, guest.Name)}
		return nil
	})
	if err != nil {
		return models.ScanResult{Message: "Scan failed, try again"}, guest, err
	}
	return res, guest, scanErr
}

func (s *LifecycleService) report(ctx context.Context, direction string, guest models.Guest, res models.ScanResult) {
	outcome := "rejected"
	if res.OK {
		outcome = "ok"
	}
	monitoring.TrackScan(direction, outcome)
	if res.Reuse {
		monitoring.TrackDuplicateScan(direction)
	}
	if s.alerts != nil && (res.Reuse || res.OK) {
		s.alerts.ScanAlert(ctx, direction, guest, res)
	}
}

// Entry scans accept the entry token or the retrieval code; exit scans accept
// the exit token or the retrieval code.
func matchesDirection(g models.Guest, direction, token string) bool {
	if token == "" {
		return false
	}
	if g.QRToken == token {
		return true
	}
	if direction == directionIn {
		return g.QREntryToken == token
	}
	return g.QRExitToken == token
}

func invalidMessage(direction string) string {
	if direction == directionIn {
		return "Invalid entry pass"
	}
	return "Invalid exit pass"
}

func okMessage(direction, name string) string {
	if direction == directionIn {
		return "Check-in OK: " + name
	}
	return "Check-out OK: " + name
}

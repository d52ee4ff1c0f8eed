package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/monitoring"
	"flux-parties/repo"
	"flux-parties/store"
	"flux-parties/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Token sizes in random bytes; hex doubles them to characters. The retrieval
// code carries 64 bits, the door tokens 96.
const (
	retrievalTokenBytes = 8
	doorTokenBytes      = 12

	entryTokenPrefix = "EN-"
	exitTokenPrefix  = "EX-"
)

type RegistrationRequest struct {
	Name      string               `json:"name"`
	Instagram string               `json:"instagram"`
	Phone     string               `json:"phone"`
	Method    models.PaymentMethod `json:"payment_method"`
	ProofRef  string               `json:"proof_ref"`
}

// RegistrationService allocates tickets against wave capacity. Together with
// LifecycleService and AdminService it is one of the only writers; everything
// it commits lands in a single store transaction.
type RegistrationService struct {
	repo *repo.Repo
}

func NewRegistrationService(r *repo.Repo) *RegistrationService {
	return &RegistrationService{repo: r}
}

// Register creates the five rows of a new guest and bumps the wave's sold
// count as one atomic unit. Rejected registrations mutate nothing.
func (s *RegistrationService) Register(ctx context.Context, req RegistrationRequest) (models.Guest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Instagram = strings.TrimSpace(req.Instagram)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ProofRef = strings.TrimSpace(req.ProofRef)

	if req.Name == "" || req.Instagram == "" || req.Phone == "" {
		return models.Guest{}, fmt.Errorf("%w: name, instagram and phone are required", status.ErrValidation)
	}
	if req.ProofRef == "" {
		return models.Guest{}, fmt.Errorf("%w: payment proof is required", status.ErrValidation)
	}
	if !req.Method.Valid() {
		return models.Guest{}, fmt.Errorf("%w: unknown payment method %q", status.ErrValidation, req.Method)
	}

	var created models.Guest
	err := s.repo.Store.WithLock(func() error {
		snapshot, err := s.repo.Store.ReadTables(
			store.TableWaves, store.TableTickets, store.TableUsers,
			store.TableSecurity, store.TableStatus, store.TablePayments,
		)
		if err != nil {
			return err
		}

		waves, err := repo.DecodeRows[models.Wave](store.TableWaves, snapshot)
		if err != nil {
			return err
		}
		tickets, err := repo.DecodeRows[models.Ticket](store.TableTickets, snapshot)
		if err != nil {
			return err
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

		waveIdx, err := activeWaveIndex(waves)
		if err != nil {
			return err
		}
		if waves[waveIdx].Full() {
			monitoring.TrackCapacityRejection(waves[waveIdx].Name)
			return fmt.Errorf("%w: %s (%d/%d)", status.ErrCapacityExceeded,
				waves[waveIdx].Name, waves[waveIdx].SoldCount, waves[waveIdx].MaxTickets)
		}

		qrToken, err := utils.GenerateCode(retrievalTokenBytes)
		if err != nil {
			return fmt.Errorf("generate retrieval token: %w", err)
		}
		entryToken, err := utils.GeneratePrefixedCode(entryTokenPrefix, doorTokenBytes)
		if err != nil {
			return fmt.Errorf("generate entry token: %w", err)
		}
		exitToken, err := utils.GeneratePrefixedCode(exitTokenPrefix, doorTokenBytes)
		if err != nil {
			return fmt.Errorf("generate exit token: %w", err)
		}

		user := models.User{
			ID:        uuid.NewString(),
			Name:      req.Name,
			Instagram: req.Instagram,
			Phone:     req.Phone,
		}
		ticket := models.Ticket{
			ID:        uuid.NewString(),
			Number:    nextNumber(tickets),
			UserID:    user.ID,
			WaveID:    waves[waveIdx].ID,
			CreatedAt: time.Now().UTC(),
		}
		sec := models.TicketSecurity{
			TicketID:     ticket.ID,
			QRToken:      qrToken,
			QREntryToken: entryToken,
			QRExitToken:  exitToken,
		}
		st := models.TicketStatus{TicketID: ticket.ID}
		pay := models.Payment{
			TicketID:   ticket.ID,
			Method:     req.Method,
			AmountDue:  waves[waveIdx].Price,
			AmountPaid: decimal.Zero,
			ProofRef:   req.ProofRef,
		}
		waves[waveIdx].SoldCount++

		batch := store.Batch{}
		if err := s.repo.Users.Stage(batch, append(users, user)); err != nil {
			return err
		}
		if err := s.repo.Tickets.Stage(batch, append(tickets, ticket)); err != nil {
			return err
		}
		if err := s.repo.Security.Stage(batch, append(security, sec)); err != nil {
			return err
		}
		if err := s.repo.Status.Stage(batch, append(statuses, st)); err != nil {
			return err
		}
		if err := s.repo.Payments.Stage(batch, append(payments, pay)); err != nil {
			return err
		}
		if err := s.repo.Waves.Stage(batch, waves); err != nil {
			return err
		}
		if err := s.repo.Store.WriteTables(batch); err != nil {
			return err
		}

		monitoring.TrackRegistration(waves[waveIdx].Name)
		monitoring.SetWaveSold(waves[waveIdx].ID, waves[waveIdx].SoldCount)

		created = composeGuest(ticket, user, sec, st, pay, waves[waveIdx])
		return nil
	})
	if err != nil {
		return models.Guest{}, err
	}
	return created, nil
}

// activeWaveIndex picks the wave flagged active, falling back to the first
// wave when none is flagged. A store with zero waves has lost its seed data.
func activeWaveIndex(waves []models.Wave) (int, error) {
	if len(waves) == 0 {
		return 0, fmt.Errorf("%w: no waves configured", status.ErrNotFound)
	}
	for i, w := range waves {
		if w.Active {
			return i, nil
		}
	}
	return 0, nil
}

// nextNumber hands out display numbers as max+1 so a deleted guest's number
// is never reissued.
func nextNumber(tickets []models.Ticket) int {
	max := 0
	for _, t := range tickets {
		if t.Number > max {
			max = t.Number
		}
	}
	return max + 1
}

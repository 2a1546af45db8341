package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/models"
)

var (
	ErrInvalidArtifact = errors.New("artifact needs an http(s) url and positive dimensions")
	ErrAlreadyShared   = errors.New("recipient already has this artifact")
	ErrNotReceived     = errors.New("artifact was not shared with this account")
	ErrInvalidAmount   = errors.New("purchase amount cannot be negative")
)

type ArtifactService struct {
	db DB
}

func NewArtifactService(db DB) *ArtifactService {
	return &ArtifactService{db: db}
}

// Create registers an uploaded image owned by ownerID.
func (s *ArtifactService) Create(ctx context.Context, ownerID uuid.UUID, params models.CreateArtifactParams) (*models.Artifact, error) {
	if !validArtifactURL(params.URL) || params.Width <= 0 || params.Height <= 0 {
		return nil, ErrInvalidArtifact
	}

	artifact := &models.Artifact{PurchaseHistory: []models.Purchase{}}
	err := s.db.QueryRow(ctx,
		`INSERT INTO artifacts (owner_id, url, width, height)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, owner_id, url, width, height, created_at`,
		ownerID, strings.TrimSpace(params.URL), params.Width, params.Height,
	).Scan(&artifact.ID, &artifact.OwnerID, &artifact.URL, &artifact.Width, &artifact.Height, &artifact.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating artifact: %w", err)
	}
	return artifact, nil
}

// GetForAccount returns artifactID if accountID created, bought or received it.
// Only the owner sees every purchase; anyone else sees just their own.
func (s *ArtifactService) GetForAccount(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Artifact, error) {
	visible, err := s.hasArtifact(ctx, accountID, artifactID, true)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrArtifactNotFound
	}

	artifact, err := s.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if artifact.OwnerID != accountID {
		own := []models.Purchase{}
		for _, p := range artifact.PurchaseHistory {
			if p.BuyerID == accountID {
				own = append(own, p)
			}
		}
		artifact.PurchaseHistory = own
	}
	return artifact, nil
}

func (s *ArtifactService) GetByID(ctx context.Context, id uuid.UUID) (*models.Artifact, error) {
	artifact := &models.Artifact{}
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, url, width, height, created_at
		 FROM artifacts WHERE id = $1`,
		id,
	).Scan(&artifact.ID, &artifact.OwnerID, &artifact.URL, &artifact.Width, &artifact.Height, &artifact.CreatedAt)
	if isNoRows(err) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting artifact: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT buyer_id, amount_cents, created_at
		 FROM artifact_purchases
		 WHERE artifact_id = $1
		 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	artifact.PurchaseHistory = []models.Purchase{}
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.BuyerID, &p.AmountCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		artifact.PurchaseHistory = append(artifact.PurchaseHistory, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	return artifact, nil
}

// ListForAccount returns artifacts created or bought by accountID, newest first.
// PurchaseHistory is not populated.
func (s *ArtifactService) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Artifact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.owner_id, a.url, a.width, a.height, a.created_at
		 FROM artifacts a
		 WHERE a.owner_id = $1
		    OR EXISTS (
		        SELECT 1 FROM artifact_purchases p
		        WHERE p.artifact_id = a.id AND p.buyer_id = $1
		    )
		 ORDER BY a.created_at DESC, a.id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []models.Artifact{}
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.URL, &a.Width, &a.Height, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return artifacts, nil
}

// Share puts artifactID in recipientID's inbox.
func (s *ArtifactService) Share(ctx context.Context, senderID, recipientID, artifactID uuid.UUID) error {
	var friends bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM account_friends
			WHERE account_id = $1 AND friend_id = $2
		)`,
		senderID, recipientID,
	).Scan(&friends)
	if err != nil {
		return fmt.Errorf("checking friendship: %w", err)
	}
	if !friends {
		return ErrNotFriends
	}

	has, err := s.hasArtifact(ctx, senderID, artifactID, false)
	if err != nil {
		return err
	}
	if !has {
		return ErrArtifactNotFound
	}

	has, err = s.hasArtifact(ctx, recipientID, artifactID, true)
	if err != nil {
		return err
	}
	if has {
		return ErrAlreadyShared
	}

	result, err := s.db.Exec(ctx,
		`INSERT INTO received_artifacts (account_id, artifact_id, from_account_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		recipientID, artifactID, senderID,
	)
	if err != nil {
		return fmt.Errorf("sharing artifact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyShared
	}
	return nil
}

// hasArtifact reports whether accountID created or bought artifactID, and
// optionally whether it is waiting in the account's inbox.
func (s *ArtifactService) hasArtifact(ctx context.Context, accountID, artifactID uuid.UUID, includeReceived bool) (bool, error) {
	return accountHasArtifact(ctx, s.db, accountID, artifactID, includeReceived)
}

func accountHasArtifact(ctx context.Context, q Querier, accountID, artifactID uuid.UUID, includeReceived bool) (bool, error) {
	var has bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM artifacts WHERE id = $2 AND owner_id = $1
		) OR EXISTS(
			SELECT 1 FROM artifact_purchases WHERE artifact_id = $2 AND buyer_id = $1
		) OR ($3 AND EXISTS(
			SELECT 1 FROM received_artifacts WHERE artifact_id = $2 AND account_id = $1
		))`,
		accountID, artifactID, includeReceived,
	).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("checking artifact ownership: %w", err)
	}
	return has, nil
}

func (s *ArtifactService) ListReceived(ctx context.Context, accountID uuid.UUID) ([]models.ReceivedArtifact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.owner_id, a.url, a.width, a.height, a.created_at,
		        r.from_account_id, r.received_at
		 FROM received_artifacts r
		 JOIN artifacts a ON a.id = r.artifact_id
		 WHERE r.account_id = $1
		 ORDER BY r.received_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing received artifacts: %w", err)
	}
	defer rows.Close()

	received := []models.ReceivedArtifact{}
	for rows.Next() {
		var r models.ReceivedArtifact
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.URL, &r.Width, &r.Height, &r.CreatedAt, &r.FromAccountID, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning received artifact: %w", err)
		}
		received = append(received, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing received artifacts: %w", err)
	}
	return received, nil
}

// Purchase moves artifactID from buyerID's inbox to their collection and
// records the payment.
func (s *ArtifactService) Purchase(ctx context.Context, buyerID, artifactID uuid.UUID, amountCents int64) (*models.Purchase, error) {
	if amountCents < 0 {
		return nil, ErrInvalidAmount
	}

	purchase := &models.Purchase{BuyerID: buyerID, AmountCents: amountCents}
	err := withTx(ctx, s.db, func(tx Tx) error {
		result, err := tx.Exec(ctx,
			"DELETE FROM received_artifacts WHERE account_id = $1 AND artifact_id = $2",
			buyerID, artifactID,
		)
		if err != nil {
			return fmt.Errorf("removing received artifact: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrNotReceived
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO artifact_purchases (artifact_id, buyer_id, amount_cents)
			 VALUES ($1, $2, $3)
			 RETURNING created_at`,
			artifactID, buyerID, amountCents,
		).Scan(&purchase.CreatedAt)
		if err != nil {
			return fmt.Errorf("recording purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func validArtifactURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

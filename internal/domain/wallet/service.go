package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo    *Repository
	custody *Custody
}

func NewService(repo *Repository, custody *Custody) *Service {
	return &Service{repo: repo, custody: custody}
}

// Create generates a fresh keypair, encrypts the private key and persists the
// wallet with a zero balance. Only the public projection is returned; key
// material stays inside custody.
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (Public, error) {
	keypair, err := GenerateKeypair()
	if err != nil {
		return Public{}, err
	}

	encrypted, err := s.custody.Encrypt(keypair.PrivateKeyHex)
	if err != nil {
		return Public{}, err
	}

	w := &Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		Address:      keypair.Address,
		EncryptedKey: encrypted,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Public{}, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("wallet_id", w.ID.String()).
		Str("address", w.Address).
		Msg("custodial wallet created")

	return w.Public(), nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Public, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return Public{}, err
	}
	return w.Public(), nil
}

// RevealKey decrypts and returns the private key so the user can import the
// custodial wallet externally. Privileged and audited; the key itself is
// never logged.
func (s *Service) RevealKey(ctx context.Context, userID uuid.UUID) (string, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := s.custody.Decrypt(w.EncryptedKey)
	if err != nil {
		log.Error().
			Str("user_id", userID.String()).
			Str("wallet_id", w.ID.String()).
			Msg("wallet key material failed to decrypt")
		return "", err
	}

	log.Warn().
		Str("user_id", userID.String()).
		Str("wallet_id", w.ID.String()).
		Msg("wallet private key revealed")

	return key, nil
}

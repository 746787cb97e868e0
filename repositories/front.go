//go:generate go run go.uber.org/mock/mockgen -source=front.go -destination=../mocks/mock_front_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/dgraph-io/badger/v4"
)

// Front is the set of personas an account currently presents as.
type Front struct {
	PersonaIDs []domain.PersonaID `json:"persona_ids"`
	Since      time.Time          `json:"since"`
}

type IFrontRepository interface {
	RecordSwitch(ctx context.Context, accountID domain.AccountID, personaIDs []domain.PersonaID) (Front, error)
	// Current returns an empty Front when the account never switched.
	Current(ctx context.Context, accountID domain.AccountID) (Front, error)
}

type FrontRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewFrontRepository(db *badger.DB) FrontRepository {
	return FrontRepository{db: db, now: time.Now}
}

func frontKey(accountID domain.AccountID) []byte {
	return []byte("front:" + string(accountID))
}

func (r FrontRepository) RecordSwitch(_ context.Context, accountID domain.AccountID, personaIDs []domain.PersonaID) (Front, error) {
	front := Front{PersonaIDs: personaIDs, Since: r.now().UTC()}
	data, err := json.Marshal(front)
	if err != nil {
		return Front{}, errors.Persistence(err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(frontKey(accountID), data)
	})
	if err != nil {
		return Front{}, errors.Persistence(err)
	}
	return front, nil
}

func (r FrontRepository) Current(_ context.Context, accountID domain.AccountID) (Front, error) {
	var front Front
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(frontKey(accountID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &front)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Front{}, nil
	}
	return front, errors.Persistence(err)
}

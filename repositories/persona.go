//go:generate go run go.uber.org/mock/mockgen -source=persona.go -destination=../mocks/mock_persona_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IPersonaRepository interface {
	// PersonasFor lists an account's personas in declaration order.
	PersonasFor(ctx context.Context, accountID domain.AccountID) ([]domain.Persona, error)
	// SavePersona creates or updates a persona and returns it with its new version.
	SavePersona(ctx context.Context, persona domain.Persona) (domain.Persona, error)
	Persona(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
}

type PersonaRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewPersonaRepository(db *badger.DB) *PersonaRepository {
	return &PersonaRepository{db: db, now: time.Now}
}

// A persona lives under "persona:{account}:{seq_padded}:{id}" so that a prefix
// scan returns personas in the order they were declared. "personaidx:{id}"
// points back to that key.
func personaKey(accountID domain.AccountID, seq int64, id domain.PersonaID) string {
	return fmt.Sprintf("persona:%s:%019d:%s", accountID, seq, id)
}

func personaIndexKey(id domain.PersonaID) []byte {
	return []byte("personaidx:" + string(id))
}

func (r *PersonaRepository) PersonasFor(_ context.Context, accountID domain.AccountID) ([]domain.Persona, error) {
	var personas []domain.Persona
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("persona:%s:", accountID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var p domain.Persona
				if err := json.Unmarshal(val, &p); err != nil {
					return err
				}
				personas = append(personas, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return personas, errors.Persistence(err)
}

// SavePersona rejects empty proxy tags. Any change bumps Version so that
// compiled matchers built from the previous version are discarded.
func (r *PersonaRepository) SavePersona(_ context.Context, persona domain.Persona) (domain.Persona, error) {
	if lo.SomeBy(persona.ProxyTags, func(t domain.ProxyTag) bool { return t.IsEmpty() }) {
		return domain.Persona{}, errors.ErrInvalidProxyTag
	}
	if err := persona.Validate(); err != nil {
		return domain.Persona{}, fmt.Errorf("%w: %w", errors.ErrInvalidArguments, err)
	}
	if persona.ID == "" {
		persona.ID = domain.PersonaID(uuid.NewString())
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		key := personaKey(persona.AccountID, r.now().UnixNano(), persona.ID)
		item, err := txn.Get(personaIndexKey(persona.ID))
		switch {
		case err == nil:
			existingKey, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			previous, err := getPersona(txn, existingKey)
			if err != nil {
				return err
			}
			if previous.AccountID != persona.AccountID {
				return errors.ErrPersonaNotOwned
			}
			key = string(existingKey)
			persona.Version = previous.Version + 1
			persona.CreatedAt = previous.CreatedAt
		case errors.Is(err, badger.ErrKeyNotFound):
			persona.Version = 1
			persona.CreatedAt = r.now().UTC()
		default:
			return err
		}

		data, err := json.Marshal(persona)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		return txn.Set(personaIndexKey(persona.ID), []byte(key))
	})
	if err != nil {
		if errors.IsValidation(err) {
			return domain.Persona{}, err
		}
		return domain.Persona{}, errors.Persistence(err)
	}
	return persona, nil
}

func (r *PersonaRepository) Persona(_ context.Context, id domain.PersonaID) (domain.Persona, error) {
	var persona domain.Persona
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(personaIndexKey(id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		persona, err = getPersona(txn, key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Persona{}, errors.ErrNotFound
	}
	return persona, errors.Persistence(err)
}

func getPersona(txn *badger.Txn, key []byte) (domain.Persona, error) {
	var p domain.Persona
	item, err := txn.Get(key)
	if err != nil {
		return p, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	})
	return p, err
}

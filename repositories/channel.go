//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/dgraph-io/badger/v4"
)

type IChannelRepository interface {
	Channel(ctx context.Context, id domain.ChannelID) (domain.Channel, error)
	SaveChannel(ctx context.Context, channel domain.Channel) error
	Channels(ctx context.Context) ([]domain.Channel, error)
}

type ChannelRepository struct {
	db *badger.DB
}

func NewChannelRepository(db *badger.DB) ChannelRepository {
	return ChannelRepository{db: db}
}

func channelKey(id domain.ChannelID) []byte {
	return []byte(fmt.Sprintf("channel:%d", id))
}

func (r ChannelRepository) Channel(_ context.Context, id domain.ChannelID) (domain.Channel, error) {
	var channel domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(channelKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &channel)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Channel{}, errors.ErrUnknownChannel
	}
	return channel, errors.Persistence(err)
}

// SaveChannel refuses a name already taken by another channel, case-insensitive.
func (r ChannelRepository) SaveChannel(ctx context.Context, channel domain.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidArguments, err)
	}
	existing, err := r.Channels(ctx)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.ID != channel.ID && strings.EqualFold(c.Name, channel.Name) {
			return fmt.Errorf("%w: channel name %q already used", errors.ErrInvalidArguments, channel.Name)
		}
	}
	data, err := json.Marshal(channel)
	if err != nil {
		return errors.Persistence(err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(channelKey(channel.ID), data)
	})
	return errors.Persistence(err)
}

// Channels returns every channel sorted by position, then id.
func (r ChannelRepository) Channels(_ context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("channel:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var c domain.Channel
				if err := json.Unmarshal(val, &c); err != nil {
					return err
				}
				channels = append(channels, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})
	return channels, nil
}

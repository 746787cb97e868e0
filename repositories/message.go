//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	SaveMessage(ctx context.Context, msg domain.Message) error
	RecentMessages(ctx context.Context, channelID domain.ChannelID, limit int) ([]domain.Message, error)
	GetMessages(ctx context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error)
	MessagesByKeys(ctx context.Context, keys []string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// MessageKey is "msg:{channel}:{timestamp_padded}:{uuid}":
//  1. 19-digit zero padding keeps the lexicographical order chronological.
//  2. The UUID separates two messages stored at the same nanosecond.
func MessageKey(msg domain.Message) string {
	return fmt.Sprintf("msg:%d:%019d:%s",
		msg.ChannelID,
		msg.Timestamp.UnixNano(),
		msg.ID,
	)
}

func (m MessageRepository) SaveMessage(_ context.Context, msg domain.Message) error {
	if msg.ResolvedContent == "" {
		return errors.ErrEmptyContent
	}
	bytes, err := json.Marshal(msg)
	if err != nil {
		return errors.Persistence(err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(MessageKey(msg)), bytes)
	})
	return errors.Persistence(err)
}

// RecentMessages returns at most limit messages of a channel, most recent first.
func (m MessageRepository) RecentMessages(ctx context.Context, channelID domain.ChannelID, limit int) ([]domain.Message, error) {
	messages, _, err := m.GetMessages(ctx, channelID, nil, limit)
	return messages, err
}

// GetMessages walks a channel backwards from cursor (exclusive), or from the
// newest message when cursor is nil. The returned cursor points at the last
// key read and can be passed back to fetch the next page.
func (m MessageRepository) GetMessages(_ context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%d:", channelID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Past the newest possible key, msg:1:9999999999999999999
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[prefixLen:]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(byteMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			// The slice given to item.Value is only valid inside the transaction
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Persistence(err)
	}

	messages, err := decodeMessages(byteMessages)
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// MessagesByKeys loads messages by their storage key, skipping keys that no longer exist.
func (m MessageRepository) MessagesByKeys(_ context.Context, keys []string) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		for _, key := range lo.Uniq(keys) {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				m.log.Debug("Indexed message missing from storage", "key", key)
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return decodeMessages(byteMessages)
}

func decodeMessages(values [][]byte) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(values))
	for _, b := range values {
		var msg domain.Message
		if err := json.Unmarshal(b, &msg); err != nil {
			return nil, errors.Persistence(err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

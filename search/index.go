// Package search keeps a full-text index of persisted messages.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/blugelabs/bluge"
)

const (
	fieldContent   = "content"
	fieldChannel   = "channel"
	fieldAccount   = "account"
	fieldTimestamp = "timestamp"
)

// Index writes every persisted message into bluge, keyed by its storage key,
// and resolves hits back through the message repository.
type Index struct {
	writer     *bluge.Writer
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewIndex(writer *bluge.Writer, repository repositories.IMessageRepository, log *slog.Logger) *Index {
	return &Index{writer: writer, repository: repository, log: log}
}

// Consume indexes one persisted message.
func (i *Index) Consume(_ context.Context, msg domain.Message) error {
	doc := bluge.NewDocument(repositories.MessageKey(msg))
	doc.AddField(bluge.NewTextField(fieldContent, msg.ResolvedContent))
	doc.AddField(bluge.NewKeywordField(fieldChannel, strconv.Itoa(int(msg.ChannelID))))
	doc.AddField(bluge.NewKeywordField(fieldAccount, string(msg.SenderAccountID)))
	doc.AddField(bluge.NewDateTimeField(fieldTimestamp, msg.Timestamp).Sortable())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return errors.Persistence(fmt.Errorf("index message: %w", err))
	}
	return nil
}

// Search returns matching messages, newest first.
func (i *Index) Search(ctx context.Context, query Query) ([]domain.Message, error) {
	if query.Terms == "" {
		return nil, fmt.Errorf("%w: nothing to search for", errors.ErrInvalidArguments)
	}

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query.Terms).SetField(fieldContent))
	if query.ChannelID != nil {
		q.AddMust(bluge.NewTermQuery(strconv.Itoa(int(*query.ChannelID))).SetField(fieldChannel))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, errors.Persistence(err)
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewTopNSearch(query.Limit, q).SortBy([]string{"-" + fieldTimestamp})
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, errors.Persistence(err)
	}

	var keys []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, errors.Persistence(err)
	}

	i.log.Debug("History search", "terms", query.Terms, "hits", len(keys))
	return i.repository.MessagesByKeys(ctx, keys)
}

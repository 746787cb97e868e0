package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(channel domain.ChannelID, author domain.AccountID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:              uuid.New(),
		ChannelID:       channel,
		SenderAccountID: author,
		RawContent:      content,
		ResolvedContent: content,
		Timestamp:       at,
	}
}

func Test_Recent_Messages_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// Given three messages stored in one channel and one in another
	at := time.Now().UTC()
	stored := []domain.Message{
		newMessage(1, "alice", "first", at),
		newMessage(1, "bob", "second", at.Add(time.Minute)),
		newMessage(1, "clara", "third", at.Add(2*time.Minute)),
		newMessage(2, "dan", "elsewhere", at),
	}
	for _, m := range stored {
		req.NoError(repository.SaveMessage(ctx, m))
	}

	// When the channel history is read
	messages, err := repository.RecentMessages(ctx, 1, 10)

	// Then only that channel comes back, newest first
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("third", messages[0].ResolvedContent)
	req.Equal("second", messages[1].ResolvedContent)
	req.Equal("first", messages[2].ResolvedContent)
}

func Test_Recent_Messages_Capped_By_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repository.SaveMessage(ctx, newMessage(1, "alice", "hello", at.Add(time.Duration(i)*time.Second))))
	}

	messages, err := repository.RecentMessages(ctx, 1, 2)
	req.NoError(err)
	req.Len(messages, 2)
	req.True(messages[0].Timestamp.After(messages[1].Timestamp))
}

func Test_Get_Messages_Pages_With_Cursor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repository.SaveMessage(ctx, newMessage(1, "alice", "hello", at.Add(time.Duration(i)*time.Second))))
	}

	// Given a first page of 3
	first, cursor, err := repository.GetMessages(ctx, 1, nil, 3)
	req.NoError(err)
	req.Len(first, 3)
	req.NotNil(cursor)

	// When the next page is asked from the cursor
	second, _, err := repository.GetMessages(ctx, 1, cursor, 3)

	// Then the remaining two older messages come back without overlap
	req.NoError(err)
	req.Len(second, 2)
	req.True(first[2].Timestamp.After(second[0].Timestamp))
}

func Test_Get_Messages_Contents_Survive_Concurrent_Writes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// Given a channel with many large messages
	at := time.Now().UTC()
	const total = 300
	for i := 0; i < total; i++ {
		content := fmt.Sprintf("%04d:%s", i, strings.Repeat("x", 1024))
		req.NoError(repository.SaveMessage(ctx, newMessage(1, "alice", content, at.Add(time.Duration(i)*time.Millisecond))))
	}

	// And another channel being written at the same time
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			_ = repository.SaveMessage(ctx, newMessage(2, "bob", strings.Repeat("y", 2048), at.Add(time.Duration(i)*time.Millisecond)))
		}
	}()

	// When the whole channel is paged through
	var cursor *string
	var read []domain.Message
	for {
		page, next, err := repository.GetMessages(ctx, 1, cursor, 50)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		read = append(read, page...)
		cursor = next
	}
	close(done)
	<-writerDone

	// Then every page decodes to the content that was stored, newest first
	req.Len(read, total)
	for i, m := range read {
		req.True(strings.HasPrefix(m.ResolvedContent, fmt.Sprintf("%04d:", total-1-i)))
		req.Len(m.ResolvedContent, 5+1024)
	}
}

func Test_Save_Message_Rejects_Empty_Content(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default())

	err := repository.SaveMessage(context.Background(), newMessage(1, "alice", "", time.Now()))

	req.ErrorIs(err, errors.ErrEmptyContent)
	req.True(errors.IsValidation(err))
}

func Test_Messages_By_Keys_Skips_Missing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	msg := newMessage(3, "alice", "findme", time.Now().UTC())
	req.NoError(repository.SaveMessage(ctx, msg))

	messages, err := repository.MessagesByKeys(ctx, []string{MessageKey(msg), "msg:3:0000000000000000001:missing", MessageKey(msg)})

	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(msg.ID, messages[0].ID)
}

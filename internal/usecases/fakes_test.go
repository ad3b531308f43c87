package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/interfaces"
)

type fakeInventory struct {
	cars    []entities.Car
	err     error
	queries []string
}

func (f *fakeInventory) Search(ctx context.Context, query string) ([]entities.Car, error) {
	f.queries = append(f.queries, query)
	return f.cars, f.err
}

type fakeActions struct {
	ran []string
	err error
}

func (f *fakeActions) Run(ctx context.Context, name string, s *entities.Session) error {
	if f.err != nil {
		return f.err
	}
	f.ran = append(f.ran, name)
	return nil
}

// sentCall is one recorded sender invocation.
type sentCall struct {
	kind      string
	chatID    string
	text      string
	messageID int
	rows      [][]entities.Button
}

// fakeSender scripts per-call errors: errs[i] fails attempt i+1, attempts
// past the script succeed.
type fakeSender struct {
	calls  []sentCall
	errs   []error
	nextID int
}

func (f *fakeSender) scriptedErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeSender) SendText(ctx context.Context, chatID, text string, rows [][]entities.Button) (int, error) {
	f.calls = append(f.calls, sentCall{kind: "send", chatID: chatID, text: text, rows: rows})
	if err := f.scriptedErr(); err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) EditText(ctx context.Context, chatID string, messageID int, text string, rows [][]entities.Button) error {
	f.calls = append(f.calls, sentCall{kind: "edit", chatID: chatID, messageID: messageID, text: text, rows: rows})
	return f.scriptedErr()
}

func (f *fakeSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.calls = append(f.calls, sentCall{kind: "answer", text: text})
	return f.scriptedErr()
}

type fakePostStore struct {
	posts []*entities.ChannelPost
}

func (f *fakePostStore) Create(ctx context.Context, p *entities.ChannelPost) error {
	p.ID = len(f.posts) + 1
	cp := *p
	f.posts = append(f.posts, &cp)
	return nil
}

func (f *fakePostStore) GetOpenByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	for i := len(f.posts) - 1; i >= 0; i-- {
		if f.posts[i].RequestID == requestID && f.posts[i].Status != entities.PostClosed {
			cp := *f.posts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePostStore) GetByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	for i := len(f.posts) - 1; i >= 0; i-- {
		if f.posts[i].RequestID == requestID {
			cp := *f.posts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePostStore) Update(ctx context.Context, p *entities.ChannelPost) error {
	for i := range f.posts {
		if f.posts[i].ID == p.ID {
			cp := *p
			f.posts[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("post %d not found", p.ID)
}

type fakeRequestStore struct {
	requests map[int]*entities.Request
	statuses map[int]string
}

func newFakeRequestStore(reqs ...*entities.Request) *fakeRequestStore {
	f := &fakeRequestStore{requests: make(map[int]*entities.Request), statuses: make(map[int]string)}
	for _, r := range reqs {
		f.requests[r.ID] = r
	}
	return f
}

func (f *fakeRequestStore) GetByID(ctx context.Context, id int) (*entities.Request, error) {
	return f.requests[id], nil
}

func (f *fakeRequestStore) SetStatus(ctx context.Context, id int, status string) error {
	f.statuses[id] = status
	return nil
}

type fakeBotResolver struct {
	bot *entities.Bot
	err error
}

func (f *fakeBotResolver) Resolve(ctx context.Context, botID int) (*entities.Bot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bot, nil
}

type fakeSenderProvider struct {
	sender *fakeSender
	err    error
}

func (f *fakeSenderProvider) SenderFor(b *entities.Bot) (interfaces.ChatSender, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sender, nil
}

// newTestOutbox builds an outbox with fast retry timing for tests.
func newTestOutbox() *Outbox {
	o := NewOutbox(infrastructure.NewChatRateLimiter(rate.Inf, 1), nil, zerolog.Nop())
	o.baseDelay = time.Millisecond
	return o
}

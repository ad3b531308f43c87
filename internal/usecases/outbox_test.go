package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerhub/internal/entities"
)

func TestOutboxDeliversAndReportsMessageID(t *testing.T) {
	o := newTestOutbox()
	sender := &fakeSender{}

	res, err := o.Execute(context.Background(), sender, 1, entities.SendText("100", "hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.MessageID)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "send", sender.calls[0].kind)
}

func TestOutboxRetriesTransientFailures(t *testing.T) {
	o := newTestOutbox()
	sender := &fakeSender{errs: []error{
		entities.TransientDelivery(errors.New("gateway timeout"), 0),
		entities.TransientDelivery(errors.New("gateway timeout"), 0),
	}}

	res, err := o.Execute(context.Background(), sender, 1, entities.SendText("100", "hello"))
	require.NoError(t, err)
	assert.Len(t, sender.calls, 3)
	assert.Equal(t, 1, res.MessageID)
}

func TestOutboxDoesNotRetryPermanentFailures(t *testing.T) {
	o := newTestOutbox()
	sender := &fakeSender{errs: []error{
		entities.PermanentDelivery(errors.New("bot was blocked by the user")),
	}}

	_, err := o.Execute(context.Background(), sender, 1, entities.SendText("100", "hello"))
	require.Error(t, err)
	assert.True(t, entities.IsPermanentDelivery(err))
	assert.Len(t, sender.calls, 1)
}

func TestOutboxGivesUpAfterAttemptBudget(t *testing.T) {
	o := newTestOutbox()
	transient := entities.TransientDelivery(errors.New("flaky"), 0)
	sender := &fakeSender{errs: []error{transient, transient, transient, transient, transient}}

	_, err := o.Execute(context.Background(), sender, 1, entities.SendText("100", "hello"))
	require.Error(t, err)
	assert.False(t, entities.IsPermanentDelivery(err))
	assert.Len(t, sender.calls, o.maxAttempts)
}

func TestOutboxHonorsRetryAfter(t *testing.T) {
	o := newTestOutbox()
	sender := &fakeSender{errs: []error{
		entities.TransientDelivery(errors.New("too many requests"), 30*time.Millisecond),
	}}

	start := time.Now()
	_, err := o.Execute(context.Background(), sender, 1, entities.SendText("100", "hello"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Len(t, sender.calls, 2)
}

func TestOutboxEditTargetsMessage(t *testing.T) {
	o := newTestOutbox()
	sender := &fakeSender{}

	eff := entities.Effect{Kind: entities.EffectEditText, ChatID: "@chan", MessageID: 77, Text: "updated"}
	res, err := o.Execute(context.Background(), sender, 1, eff)
	require.NoError(t, err)
	assert.Equal(t, 77, res.MessageID)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "edit", sender.calls[0].kind)
	assert.Equal(t, 77, sender.calls[0].messageID)
}

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratewatcher/internal/offers"
	"ratewatcher/internal/rates"
	"ratewatcher/internal/storage"
)

type fakeSource struct {
	offers  []offers.Offer
	err     error
	fetches int
}

func (f *fakeSource) FetchOffers(ctx context.Context) ([]offers.Offer, error) {
	f.fetches++
	return f.offers, f.err
}

type fakeStore struct {
	data    map[string]storage.Subscription
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load() (map[string]storage.Subscription, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snapshot := make(map[string]storage.Subscription, len(f.data))
	for k, v := range f.data {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (f *fakeStore) Save(snapshot map[string]storage.Subscription) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data = make(map[string]storage.Subscription, len(snapshot))
	for k, v := range snapshot {
		f.data[k] = v
	}
	return nil
}

type notification struct {
	userID    string
	channelID int64
	text      string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID string, channelID int64, text string) error {
	f.sent = append(f.sent, notification{userID: userID, channelID: channelID, text: text})
	return f.err
}

func rankedOffers(pairs ...[2]string) []offers.Offer {
	records := make([]offers.Record, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, offers.Record{ID: p[0], Supplier: "Supplier " + p[0], Rate: p[1]})
	}
	return offers.Rank(offers.Normalize(records, "https://www.energizect.com"))
}

func newTestEngine(source *fakeSource, store *fakeStore, notifier *fakeNotifier) *Engine {
	return New(source, store, notifier, Options{}, zerolog.Nop())
}

func TestDailyPassNotifiesAndAdvancesState(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"}, [2]string{"B", "0.12000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000", NotifyChannelID: 42},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "7", notifier.sent[0].userID)
	assert.Equal(t, int64(42), notifier.sent[0].channelID)
	assert.Contains(t, notifier.sent[0].text, "0.10000")

	sub := store.data["7"]
	assert.Equal(t, "A", sub.LastNotifiedOfferID)
	assert.Equal(t, "0.10000", sub.LastNotifiedRate)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, source.fetches, "one fetch serves the whole pass")
}

func TestDailyPassSuppressesDuplicate(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000", LastNotifiedOfferID: "A", LastNotifiedRate: "0.10000"},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))
	assert.Empty(t, notifier.sent)
}

func TestDailyPassRepricedOfferFiresAgain(t *testing.T) {
	// Same plan id, new price: identity is the (id, rate) pair.
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.09000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000", LastNotifiedOfferID: "A", LastNotifiedRate: "0.10000"},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "0.09000", store.data["7"].LastNotifiedRate)
}

func TestDailyPassNoCheaperOfferKeepsStaleState(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"X", "0.20000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000", LastNotifiedOfferID: "A", LastNotifiedRate: "0.10000"},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))

	assert.Empty(t, notifier.sent)
	sub := store.data["7"]
	assert.Equal(t, "A", sub.LastNotifiedOfferID, "vanished offer does not clear dedup state")
	assert.Equal(t, "0.10000", sub.LastNotifiedRate)
}

func TestDailyPassFetchFailureLeavesStoreUntouched(t *testing.T) {
	source := &fakeSource{err: errors.New("403 blocked")}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	err := eng.RunDailyPass(context.Background())
	require.Error(t, err)

	assert.Empty(t, notifier.sent)
	assert.Zero(t, store.saves, "aborted pass must not persist anything")
}

func TestDailyPassEmptyFeedAborts(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}

	eng := newTestEngine(source, store, &fakeNotifier{})
	require.Error(t, eng.RunDailyPass(context.Background()))
	assert.Zero(t, store.saves)
}

func TestDailyPassEmptyStoreSkipsFetch(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"})}
	store := &fakeStore{data: map[string]storage.Subscription{}}

	eng := newTestEngine(source, store, &fakeNotifier{})
	require.NoError(t, eng.RunDailyPass(context.Background()))
	assert.Zero(t, source.fetches)
	assert.Zero(t, store.saves)
}

func TestDailyPassDeliveryFailureStillAdvancesState(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
		"8": {Rate: "0.14000"},
	}}
	notifier := &fakeNotifier{err: errors.New("user blocks DMs")}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))

	assert.Len(t, notifier.sent, 2, "one user's failure must not abort the rest")
	assert.Equal(t, "A", store.data["7"].LastNotifiedOfferID)
	assert.Equal(t, "A", store.data["8"].LastNotifiedOfferID)
	assert.Equal(t, 1, store.saves)
}

func TestDailyPassSkipsUsersWithoutRate(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {NotifyChannelID: 42},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))
	assert.Empty(t, notifier.sent)
}

func TestSetRateResetsDedupState(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000", LastNotifiedOfferID: "A", LastNotifiedRate: "0.10000"},
	}}
	notifier := &fakeNotifier{}
	eng := newTestEngine(source, store, notifier)

	// Re-setting the identical rate still re-arms notifications.
	d, err := eng.SetRate("7", 42, 0, "0.15000")
	require.NoError(t, err)
	assert.Equal(t, "0.15000", rates.Display(d))

	sub := store.data["7"]
	assert.Empty(t, sub.LastNotifiedOfferID)
	assert.Empty(t, sub.LastNotifiedRate)
	assert.Equal(t, int64(42), sub.NotifyChannelID)

	require.NoError(t, eng.RunDailyPass(context.Background()))
	assert.Len(t, notifier.sent, 1, "same best offer fires again after reset")
}

func TestSetRateValidationErrorPassesThrough(t *testing.T) {
	store := &fakeStore{data: map[string]storage.Subscription{}}
	eng := newTestEngine(&fakeSource{}, store, &fakeNotifier{})

	_, err := eng.SetRate("7", 42, 0, "0.1")
	assert.ErrorIs(t, err, rates.ErrTooFewDigits)
	assert.Zero(t, store.saves, "invalid input persists nothing")
}

func TestSetRateRoundsToCanonicalForm(t *testing.T) {
	store := &fakeStore{data: map[string]storage.Subscription{}}
	eng := newTestEngine(&fakeSource{}, store, &fakeNotifier{})

	_, err := eng.SetRate("7", 42, 9, "0.123455")
	require.NoError(t, err)
	assert.Equal(t, "0.12346", store.data["7"].Rate)
	assert.Equal(t, int64(9), store.data["7"].NotifyGuildID)
}

func TestStoredRate(t *testing.T) {
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
		"8": {NotifyChannelID: 1},
	}}
	eng := newTestEngine(&fakeSource{}, store, &fakeNotifier{})

	rate, ok, err := eng.StoredRate("7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.15000", rate)

	_, ok, err = eng.StoredRate("8")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = eng.StoredRate("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckNowReportsBestAndCheaper(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.10000"}, [2]string{"B", "0.20000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}
	eng := newTestEngine(source, store, &fakeNotifier{})

	report, err := eng.CheckNow(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "A", report.Best.ID)
	assert.Equal(t, "0.10000", report.CheaperRate)
	assert.Zero(t, store.saves, "on-demand check never persists dedup state")
}

func TestCheckNowNoCheaperOffer(t *testing.T) {
	source := &fakeSource{offers: rankedOffers([2]string{"A", "0.20000"})}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}
	eng := newTestEngine(source, store, &fakeNotifier{})

	report, err := eng.CheckNow(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "A", report.Best.ID, "best offer reported even when not cheaper")
	assert.Empty(t, report.CheaperRate)
}

func TestCheckNowWithoutRate(t *testing.T) {
	eng := newTestEngine(&fakeSource{}, &fakeStore{data: map[string]storage.Subscription{}}, &fakeNotifier{})

	_, err := eng.CheckNow(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNoRate)
}

func TestCheckNowFetchFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}
	eng := newTestEngine(source, store, &fakeNotifier{})

	_, err := eng.CheckNow(context.Background(), "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch offers")
}

func TestRenderAlertListsTopCheaperOffers(t *testing.T) {
	source := &fakeSource{offers: rankedOffers(
		[2]string{"A", "0.10000"},
		[2]string{"B", "0.11000"},
		[2]string{"C", "0.12000"},
		[2]string{"D", "0.13000"},
	)}
	store := &fakeStore{data: map[string]storage.Subscription{
		"7": {Rate: "0.15000"},
	}}
	notifier := &fakeNotifier{}

	eng := newTestEngine(source, store, notifier)
	require.NoError(t, eng.RunDailyPass(context.Background()))
	require.Len(t, notifier.sent, 1)

	text := notifier.sent[0].text
	assert.Contains(t, text, "Cheaper electricity rate found")
	assert.Contains(t, text, "Your rate: 0.15000 $/kWh")
	assert.Contains(t, text, "save ~$37.50 / month @ 750 kWh")
	assert.Contains(t, text, "Other cheaper options:")
	assert.Contains(t, text, "Supplier B: 0.11000")
	assert.Contains(t, text, "Supplier C: 0.12000")
	assert.NotContains(t, text, "Supplier D", "capped at three cheaper offers")
	assert.Equal(t, 1, strings.Count(text, "- Rate:"), "only the best offer gets the full block")
}

package p2p

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

func newBanManager(t *testing.T, clk clock.Clock, store storage.Store) *BanManager {
	t.Helper()
	m, err := NewBanManager(DefaultBanConfig(), NewPeerStore(store), clk, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Load())
	return m
}

func TestNewBanManager(t *testing.T) {
	tests := []struct {
		name    string
		store   banStore
		clock   clock.Clock
		logger  *zap.Logger
		wantErr bool
	}{
		{name: "ok", store: NewPeerStore(storage.NewMemory()), clock: clock.System{}, logger: zap.NewNop()},
		{name: "nil store", clock: clock.System{}, logger: zap.NewNop(), wantErr: true},
		{name: "nil clock", store: NewPeerStore(storage.NewMemory()), logger: zap.NewNop(), wantErr: true},
		{name: "nil logger", store: NewPeerStore(storage.NewMemory()), clock: clock.System{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBanManager(DefaultBanConfig(), tt.store, tt.clock, tt.logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBanManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBanManager_InvalidBlockBansImmediately(t *testing.T) {
	m := newBanManager(t, clock.NewManual(epoch), storage.NewMemory())
	ip := netip.MustParseAddr("10.0.0.1")

	rec, err := m.AddOffense(ip, OffenseInvalidBlock)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, BanReason(OffenseInvalidBlock), rec.Reason)
	require.Equal(t, 24*time.Hour, rec.Duration)
	require.True(t, m.IsBanned(ip))
	require.False(t, m.IsBanned(netip.MustParseAddr("10.0.0.2")))

	rec, err = m.AddOffense(ip, OffenseInvalidBlock)
	require.NoError(t, err)
	require.Nil(t, rec, "offenses while banned are ignored")
}

func TestBanManager_AccumulatedMisbehavior(t *testing.T) {
	m := newBanManager(t, clock.NewManual(epoch), storage.NewMemory())
	ip := netip.MustParseAddr("10.0.0.2")

	for i := 0; i < 9; i++ {
		rec, err := m.AddOffense(ip, OffenseInvalidTransaction)
		require.NoError(t, err)
		require.Nil(t, rec)
	}
	require.Equal(t, uint32(90), m.Score(ip))
	require.False(t, m.IsBanned(ip))

	rec, err := m.AddOffense(ip, OffenseInvalidTransaction)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, ReasonAccumulatedMisbehavior, rec.Reason)
	require.Zero(t, m.Score(ip), "score resets once banned")
}

func TestBanManager_ReasonIsMostSevereRecentOffense(t *testing.T) {
	m := newBanManager(t, clock.NewManual(epoch), storage.NewMemory())
	ip := netip.MustParseAddr("10.0.0.3")

	_, err := m.AddOffense(ip, OffenseConnectionAbuse)
	require.NoError(t, err)
	_, err = m.AddOffense(ip, OffenseProtocolViolation)
	require.NoError(t, err)
	rec, err := m.AddOffense(ip, OffenseConnectionAbuse)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, BanReason(OffenseProtocolViolation), rec.Reason)
}

func TestBanManager_Decay(t *testing.T) {
	clk := clock.NewManual(epoch)
	m := newBanManager(t, clk, storage.NewMemory())
	ip := netip.MustParseAddr("10.0.0.4")

	_, err := m.AddOffense(ip, OffenseProtocolViolation)
	require.NoError(t, err)
	clk.Advance(150 * time.Minute)
	require.Equal(t, uint32(30), m.Score(ip))

	clk.Advance(30 * time.Minute)
	require.Equal(t, uint32(20), m.Score(ip), "partial periods carry over")

	rec, err := m.AddOffense(ip, OffenseProtocolViolation)
	require.NoError(t, err)
	require.Nil(t, rec)

	clk.Advance(10 * time.Hour)
	m.Sweep()
	require.Equal(t, BanStats{}, m.Stats())
}

func TestBanManager_Escalation(t *testing.T) {
	clk := clock.NewManual(epoch)
	m := newBanManager(t, clk, storage.NewMemory())
	key := netip.MustParsePrefix("10.0.0.5/32")

	want := []time.Duration{24 * time.Hour, 48 * time.Hour, 96 * time.Hour, 192 * time.Hour, 384 * time.Hour, 720 * time.Hour, 720 * time.Hour}
	for i, d := range want {
		rec, err := m.Ban(key, ReasonManual, 0)
		require.NoError(t, err)
		require.Equal(t, d, rec.Duration, "ban %d", i+1)
		require.Equal(t, uint32(i+1), rec.Count)

		if i%2 == 0 {
			ok, err := m.Unban(key)
			require.NoError(t, err)
			require.True(t, ok)
		} else {
			clk.Advance(rec.Duration)
		}
		require.False(t, m.IsBanned(key.Addr()))
	}
}

func TestBanManager_SubnetBans(t *testing.T) {
	m := newBanManager(t, clock.NewManual(epoch), storage.NewMemory())

	_, err := m.Ban(netip.MustParsePrefix("192.0.2.77/24"), ReasonManual, time.Hour)
	require.NoError(t, err)
	_, err = m.Ban(netip.MustParsePrefix("2001:db8:aa:bb::/64"), ReasonManual, time.Hour)
	require.NoError(t, err)

	require.True(t, m.IsBanned(netip.MustParseAddr("192.0.2.1")))
	require.True(t, m.IsBanned(netip.MustParseAddr("::ffff:192.0.2.200")))
	require.False(t, m.IsBanned(netip.MustParseAddr("192.0.3.1")))
	require.True(t, m.IsBanned(netip.MustParseAddr("2001:db8:aa:bb::1234")))
	require.False(t, m.IsBanned(netip.MustParseAddr("2001:db8:aa:bc::1")))

	_, err = m.Ban(netip.MustParsePrefix("10.0.0.0/8"), ReasonManual, time.Hour)
	require.ErrorIs(t, err, ErrUnsupportedBanKey)

	bans := m.Bans()
	require.Len(t, bans, 2)
	require.Equal(t, netip.MustParsePrefix("192.0.2.0/24"), bans[0].Key)
}

func TestBanManager_ExpiredBansAreInert(t *testing.T) {
	clk := clock.NewManual(epoch)
	m := newBanManager(t, clk, storage.NewMemory())
	ip := netip.MustParseAddr("10.0.0.6")

	_, err := m.Ban(netip.PrefixFrom(ip, 32), ReasonManual, time.Minute)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	require.False(t, m.IsBanned(ip), "expired before sweep")
	require.Equal(t, 1, m.Sweep())
	require.Empty(t, m.Bans())
}

func TestBanManager_PersistsAcrossRestart(t *testing.T) {
	clk := clock.NewManual(epoch)
	store := storage.NewMemory()
	m := newBanManager(t, clk, store)

	active := netip.MustParseAddr("10.0.0.7")
	lifted := netip.MustParseAddr("10.0.0.8")
	_, err := m.AddOffense(active, OffenseInvalidBlock)
	require.NoError(t, err)
	_, err = m.Ban(netip.PrefixFrom(lifted, 32), ReasonManual, 0)
	require.NoError(t, err)
	_, err = m.Unban(netip.PrefixFrom(lifted, 32))
	require.NoError(t, err)

	restarted := newBanManager(t, clk, store)
	require.True(t, restarted.IsBanned(active))
	require.False(t, restarted.IsBanned(lifted))

	rec, err := restarted.Ban(netip.PrefixFrom(lifted, 32), ReasonManual, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(2), rec.Count, "ban count survives unban and restart")
	require.Equal(t, 48*time.Hour, rec.Duration)
}

func TestBanManager_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockbanStore(ctrl)
	m, err := NewBanManager(DefaultBanConfig(), store, clock.NewManual(epoch), zap.NewNop())
	require.NoError(t, err)

	store.EXPECT().LoadBans().Return(nil, errors.New("boom"))
	require.Error(t, m.Load())

	ip := netip.MustParseAddr("10.0.0.9")
	store.EXPECT().SaveBan(gomock.Any()).Return(errors.New("disk full"))
	rec, err := m.AddOffense(ip, OffenseInvalidBlock)
	require.Error(t, err)
	require.NotNil(t, rec)
	require.True(t, m.IsBanned(ip), "ban applies even when it cannot be persisted")
}

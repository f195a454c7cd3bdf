package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/db"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	storemocks "liyu1981.xyz/energy-monitor-service/pkg/store/mocks"
	_ "liyu1981.xyz/energy-monitor-service/pkg/testing"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
	tuyamocks "liyu1981.xyz/energy-monitor-service/pkg/tuya/mocks"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya/tuyatest"
)

func plugStatus(power float64) []tuya.StatusItem {
	return []tuya.StatusItem{
		{Code: "cur_power", Value: power},
		{Code: "cur_voltage", Value: 2200},
		{Code: "cur_current", Value: 500},
		{Code: "add_ele", Value: 2500},
	}
}

func newSqliteStore(t *testing.T) *store.GormStore {
	t.Helper()
	name := "collector_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	conn, err := db.New(db.UseNamedMemorySqliteDialector(name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return store.NewGormStore(conn, store.Limits{})
}

func newVendor(t *testing.T) *tuyatest.Server {
	t.Helper()
	vendor := tuyatest.NewServer("collector-id", "collector-secret", "account-1")
	t.Cleanup(vendor.Close)
	return vendor
}

// registerDevices adds n devices named plug-0..plug-(n-1) to both the vendor
// and the registry.
func registerDevices(t *testing.T, vendor *tuyatest.Server, s store.Store, n int) {
	t.Helper()
	for i := range n {
		id := fmt.Sprintf("plug-%d", i)
		vendor.AddDevice(tuya.DeviceInfo{ID: id, Name: "Plug " + id, Category: "cz", Online: true},
			plugStatus(float64(1000+i)))
		_, _, err := s.UpsertDevice(context.Background(), id, store.DeviceFields{Name: common.Ptr("Plug " + id)})
		require.NoError(t, err)
	}
}

func TestCollectWithoutDevices(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{})

	summary := c.Collect(context.Background())

	assert.True(t, summary.Success)
	assert.Equal(t, StatusNoDevices, summary.Status)
	assert.Zero(t, summary.Collected)
	assert.Empty(t, summary.Errors)
	assert.Zero(t, vendor.StatusCalls())
	assert.Zero(t, vendor.TokenCalls())

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.TotalCollections)
	assert.Zero(t, stats.SuccessfulCollections)
	assert.Zero(t, stats.FailedCollections)
	assert.Equal(t, StatusNoDevices, stats.LastCollectionStatus)
}

func TestCollectIsolatesDeviceFailures(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 5)
	vendor.FailDevice("plug-1", "device is offline")
	vendor.FailDevice("plug-3", "device is offline")

	c := New(s, vendor.NewClient(tuya.ClientOpts{}), NewState(), Options{Concurrency: 2})
	summary := c.Collect(context.Background())

	assert.True(t, summary.Success)
	assert.Equal(t, StatusSuccess, summary.Status)
	assert.Equal(t, 3, summary.Collected)
	assert.Equal(t, 5, summary.Total)
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, "plug-1", summary.Errors[0].DeviceID)
	assert.Equal(t, "Plug plug-1", summary.Errors[0].Device)
	assert.Contains(t, summary.Errors[0].Error, "device is offline")
	assert.Equal(t, "plug-3", summary.Errors[1].DeviceID)
	assert.EqualValues(t, 5, vendor.StatusCalls())
	assert.EqualValues(t, 1, vendor.TokenCalls())

	readings, err := s.QueryReadings(context.Background(), store.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, readings, 3)

	failed, err := s.GetDevice(context.Background(), "plug-1")
	require.NoError(t, err)
	assert.False(t, failed.Online)
	ok, err := s.GetDevice(context.Background(), "plug-0")
	require.NoError(t, err)
	assert.True(t, ok.Online)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.SuccessfulCollections)
	assert.Equal(t, StatusSuccess, stats.LastCollectionStatus)
	require.NotNil(t, stats.LastCollectionTime)
}

func TestCollectNormalizesReadings(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 1)

	sampled := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{Now: func() time.Time { return sampled }})
	require.True(t, c.Collect(context.Background()).Success)

	readings, err := s.QueryReadings(context.Background(), store.ReadingFilter{DeviceID: "plug-0"})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.InDelta(t, 100.0, readings[0].Power, 1e-9)
	assert.InDelta(t, 220.0, readings[0].Voltage, 1e-9)
	assert.InDelta(t, 500.0, readings[0].Current, 1e-9)
	assert.InDelta(t, 2.5, readings[0].Energy, 1e-9)
	assert.True(t, readings[0].Timestamp.Equal(sampled))
}

func TestCollectEmptyStatusStillPersists(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 1)
	vendor.SetRawStatus("plug-0", `{}`)

	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{})
	summary := c.Collect(context.Background())
	assert.Equal(t, 1, summary.Collected)

	readings, err := s.QueryReadings(context.Background(), store.ReadingFilter{DeviceID: "plug-0"})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Zero(t, readings[0].Power)
}

func TestCollectVendorEnumerationFailure(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 3)
	vendor.FailList("permission deny")

	client := vendor.NewClient(tuya.ClientOpts{})
	c := New(s, client, nil, Options{Source: VendorSource{Client: client, Store: s}})
	summary := c.Collect(context.Background())

	assert.False(t, summary.Success)
	assert.Equal(t, StatusError, summary.Status)
	assert.Contains(t, summary.Error, "permission deny")
	assert.Zero(t, vendor.StatusCalls())

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.FailedCollections)
	assert.Equal(t, StatusError, stats.LastCollectionStatus)
}

func TestCollectVendorSourceRegistersNewDevices(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	vendor.AddDevice(tuya.DeviceInfo{ID: "plug-new", Category: "cz", Online: true}, plugStatus(50))
	vendor.AddDevice(tuya.DeviceInfo{ID: "plug-old", Name: "Vendor name", Category: "cz"}, plugStatus(60))
	_, _, err := s.UpsertDevice(context.Background(), "plug-old", store.DeviceFields{Name: common.Ptr("Kitchen")})
	require.NoError(t, err)

	client := vendor.NewClient(tuya.ClientOpts{})
	c := New(s, client, nil, Options{Source: VendorSource{Client: client, Store: s}})
	summary := c.Collect(context.Background())
	assert.Equal(t, 2, summary.Collected)

	added, err := s.GetDevice(context.Background(), "plug-new")
	require.NoError(t, err)
	assert.Equal(t, "Device plug-new", added.Name)

	kept, err := s.GetDevice(context.Background(), "plug-old")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", kept.Name, "user names win over vendor names")
}

func TestCollectRegistryFailure(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := storemocks.NewMockStore(ctrl)
	mockClient := tuyamocks.NewMockDeviceClient(ctrl)

	mockStore.EXPECT().
		ListDevices(gomock.Any()).
		Return(nil, common.NewStoreError("list devices", errors.New("connection refused")))
	mockClient.EXPECT().GetDeviceStatus(gomock.Any(), gomock.Any()).Times(0)

	c := New(mockStore, mockClient, nil, Options{})
	summary := c.Collect(context.Background())

	assert.False(t, summary.Success)
	assert.Contains(t, summary.Error, "connection refused")
	assert.Zero(t, summary.Total)
}

func TestCollectStoreWriteFailureIsIsolated(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := storemocks.NewMockStore(ctrl)
	mockClient := tuyamocks.NewMockDeviceClient(ctrl)

	mockStore.EXPECT().ListDevices(gomock.Any()).Return([]models.Device{
		{DeviceID: "plug-a", Name: "A"},
		{DeviceID: "plug-b", Name: "B"},
	}, nil)
	mockClient.EXPECT().GetDeviceStatus(gomock.Any(), gomock.Any()).Return(plugStatus(10), nil).Times(2)
	mockStore.EXPECT().
		InsertReading(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.EnergyReading) error {
			if r.DeviceID == "plug-b" {
				return common.NewStoreError("insert reading", errors.New("disk full"))
			}
			return nil
		}).
		Times(2)
	// only the device whose reading landed is marked online
	mockStore.EXPECT().SetDeviceOnline(gomock.Any(), "plug-a", true).Return(nil)

	c := New(mockStore, mockClient, nil, Options{})
	summary := c.Collect(context.Background())

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Collected)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "plug-b", summary.Errors[0].DeviceID)
	assert.Contains(t, summary.Errors[0].Error, "disk full")
}

func TestCollectOnlineFlagFailureOnlyLogs(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := storemocks.NewMockStore(ctrl)
	mockClient := tuyamocks.NewMockDeviceClient(ctrl)

	mockStore.EXPECT().ListDevices(gomock.Any()).Return([]models.Device{{DeviceID: "plug-a"}}, nil)
	mockClient.EXPECT().GetDeviceStatus(gomock.Any(), "plug-a").Return(plugStatus(10), nil)
	mockStore.EXPECT().InsertReading(gomock.Any(), gomock.Any()).Return(nil)
	mockStore.EXPECT().
		SetDeviceOnline(gomock.Any(), "plug-a", true).
		Return(common.NewStoreError("set device online", errors.New("locked")))

	summary := New(mockStore, mockClient, nil, Options{}).Collect(context.Background())
	assert.Equal(t, 1, summary.Collected)
	assert.Empty(t, summary.Errors)
}

func TestCollectDoesNotRecreateDeletedDevice(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 2)
	vendor.FailDevice("plug-1", "device is offline")
	vendor.SetStatusDelay(300 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, s.DeleteDevice(context.Background(), "plug-0"))
		assert.NoError(t, s.DeleteDevice(context.Background(), "plug-1"))
	}()

	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{})
	summary := c.Collect(context.Background())
	wg.Wait()

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Collected)

	devices, err := s.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices, "the online flag update must not bring removed devices back")
	_, err = s.GetDevice(context.Background(), "plug-0")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollectDeviceTimeout(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 2)
	vendor.SetStatusDelay(time.Second)

	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{DeviceTimeout: 50 * time.Millisecond})
	summary := c.Collect(context.Background())

	assert.True(t, summary.Success)
	assert.Zero(t, summary.Collected)
	assert.Len(t, summary.Errors, 2)
	assert.Less(t, summary.Duration, int64(1000))
}

func TestConcurrentCollectRunsOneCycle(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 2)
	vendor.SetStatusDelay(500 * time.Millisecond)

	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{})

	summaries := make([]Summary, 5)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		summaries[0] = c.Collect(context.Background())
	}()
	require.Eventually(t, func() bool { return vendor.StatusCalls() > 0 }, 2*time.Second, 5*time.Millisecond)

	for i := 1; i < len(summaries); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i] = c.Collect(context.Background())
		}()
	}
	wg.Wait()

	for _, summary := range summaries {
		assert.Equal(t, summaries[0].CycleID, summary.CycleID)
		assert.True(t, summary.Shared)
		assert.Equal(t, 2, summary.Collected)
	}
	assert.EqualValues(t, 1, c.Stats().TotalCollections)
	assert.EqualValues(t, 2, vendor.StatusCalls())

	// the next trigger after the cycle ends starts a fresh one
	next := c.Collect(context.Background())
	assert.NotEqual(t, summaries[0].CycleID, next.CycleID)
	assert.False(t, next.Shared)
	assert.EqualValues(t, 2, c.Stats().TotalCollections)
}

func TestCollectIgnoresCallerCancellation(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{}).Collect(ctx)
	assert.Equal(t, 1, summary.Collected)
}

type recordingSink struct {
	mu       sync.Mutex
	readings []models.EnergyReading
	err      error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Publish(_ context.Context, reading *models.EnergyReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, *reading)
	return r.err
}

func TestCollectPublishesToSinks(t *testing.T) {
	common.SetTestLoggerNop()

	vendor := newVendor(t)
	s := newSqliteStore(t)
	registerDevices(t, vendor, s, 3)
	vendor.FailDevice("plug-2", "offline")

	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("broker down")}
	c := New(s, vendor.NewClient(tuya.ClientOpts{}), nil, Options{Sinks: []Sink{ok, broken}})

	summary := c.Collect(context.Background())
	assert.Equal(t, 2, summary.Collected, "sink failures do not fail devices")
	assert.Len(t, ok.readings, 2)
	assert.Len(t, broken.readings, 2)
	for _, r := range ok.readings {
		assert.NotEmpty(t, r.ID)
		assert.NotEqual(t, "plug-2", r.DeviceID)
	}
}

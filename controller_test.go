package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-butler/plantmon/config"
	"github.com/gr-butler/plantmon/db/postgres"
	"github.com/gr-butler/plantmon/pub"
	"github.com/gr-butler/plantmon/sensors"
)

type fakeSoil struct {
	raw int
	err error
}

func (f *fakeSoil) ReadRaw() (int, error) { return f.raw, f.err }

type fakeClimate struct {
	temp sensors.TemperatureC
	hum  sensors.RelHumidity
	err  error
}

func (f *fakeClimate) Read() (sensors.TemperatureC, sensors.RelHumidity, error) {
	return f.temp, f.hum, f.err
}

type fakeDisplay struct {
	rows   map[int]string
	writes int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{rows: map[int]string{}}
}

func (f *fakeDisplay) WriteAt(row, col int, text string) error {
	f.writes++
	f.rows[row] = text
	return nil
}

func (f *fakeDisplay) Clear() error { return nil }

// fakeButton registers one press per set, like a debounced tap.
type fakeButton struct {
	pressed bool
}

func (f *fakeButton) Pressed(time.Time) bool {
	p := f.pressed
	f.pressed = false
	return p
}

type postArgs struct {
	profile  config.Profile
	tempC    float64
	soilRaw  int
	humidity float64
	status   string
}

type fakeCloud struct {
	connectOK bool
	code      int
	err       error
	connects  int
	posts     []postArgs
}

func (f *fakeCloud) Connect() bool {
	f.connects++
	return f.connectOK
}

func (f *fakeCloud) Post(p config.Profile, tempC float64, soilRaw int, humidity float64, status string) (int, error) {
	f.posts = append(f.posts, postArgs{p, tempC, soilRaw, humidity, status})
	return f.code, f.err
}

type fakeRecorder struct {
	params []postgres.WriteReadingParams
}

func (f *fakeRecorder) WriteReading(_ context.Context, p postgres.WriteReadingParams) error {
	f.params = append(f.params, p)
	return nil
}

type fakePublisher struct {
	readings []pub.Reading
}

func (f *fakePublisher) Publish(r pub.Reading) error {
	f.readings = append(f.readings, r)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Profiles = []config.Profile{
		{Name: "Monstera", DrySoil: 2100, WetSoil: 1400, ChannelID: 1, WriteKey: "KEY1"},
		{Name: "Basil", DrySoil: 1900, WetSoil: 1200, ChannelID: 2, WriteKey: "KEY2"},
		{Name: "Fern", DrySoil: 1700, WetSoil: 1000, ChannelID: 3, WriteKey: "KEY3"},
	}
	return cfg
}

type testRig struct {
	s     *station
	lcd   *fakeDisplay
	cloud *fakeCloud
	soil  *fakeSoil
	clim  *fakeClimate
	up    *fakeButton
	down  *fakeButton
	sel   *fakeButton
	clock clockwork.FakeClock
}

func newTestRig() *testRig {
	r := &testRig{
		lcd:   newFakeDisplay(),
		cloud: &fakeCloud{connectOK: true, code: http.StatusOK},
		soil:  &fakeSoil{raw: 1800},
		clim:  &fakeClimate{temp: 21.5, hum: 48},
		up:    &fakeButton{},
		down:  &fakeButton{},
		sel:   &fakeButton{},
		clock: clockwork.NewFakeClock(),
	}
	r.s = &station{
		cfg:     testConfig(),
		soil:    r.soil,
		climate: r.clim,
		lcd:     r.lcd,
		up:      r.up,
		down:    r.down,
		sel:     r.sel,
		cloud:   r.cloud,
		clock:   r.clock,
	}
	return r
}

func Test_classify(t *testing.T) {
	p := config.Profile{Name: "Monstera", DrySoil: 2100, WetSoil: 1400}

	tests := []struct {
		raw  int
		want string
	}{
		{2300, "needs water"},
		{1200, "too wet"},
		{1800, "ideal"},
		// ties go to ideal
		{2100, "ideal"},
		{1400, "ideal"},
		{2101, "needs water"},
		{1399, "too wet"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, classify(tc.raw, p), "raw=%d", tc.raw)
	}
}

func Test_SelectionWraps(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeSelecting}

	for _, want := range []int{1, 2, 0, 1} {
		r.down.pressed = true
		st = r.s.tick(st)
		assert.Equal(t, want, st.selected)
	}

	for _, want := range []int{0, 2, 1} {
		r.up.pressed = true
		st = r.s.tick(st)
		assert.Equal(t, want, st.selected)
	}
}

func Test_SelectingDraw(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeSelecting, selected: 1}

	r.s.tick(st)
	assert.Equal(t, "Select plant:   ", r.lcd.rows[0])
	assert.Equal(t, "> Basil         ", r.lcd.rows[1])
}

func Test_ModeTransitions(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeSelecting, selected: 1}
	st.lastPost = r.clock.Now()

	// select press enters monitoring and clears the post timer
	r.sel.pressed = true
	st = r.s.tick(st)
	require.Equal(t, ModeMonitoring, st.mode)
	assert.True(t, st.lastPost.IsZero())
	assert.Empty(t, r.cloud.posts)

	// next tick posts immediately
	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)
	assert.Equal(t, "Basil", r.cloud.posts[0].profile.Name)
	assert.False(t, st.lastPost.IsZero())

	// select press returns to selection
	r.sel.pressed = true
	st = r.s.tick(st)
	assert.Equal(t, ModeSelecting, st.mode)
}

func Test_PostCadence(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)

	// before the interval elapses nothing is sent
	r.clock.Advance(10 * time.Second)
	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)

	r.clock.Advance(19*time.Second + 999*time.Millisecond)
	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)

	// 30s after the last post it fires again
	r.clock.Advance(time.Millisecond)
	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 2)
	assert.False(t, st.lastPost.IsZero())
}

func Test_PostContents(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeMonitoring}

	r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)
	post := r.cloud.posts[0]
	assert.Equal(t, "Monstera", post.profile.Name)
	assert.Equal(t, 21.5, post.tempC)
	assert.Equal(t, 1800, post.soilRaw)
	assert.Equal(t, float64(48), post.humidity)
	assert.Equal(t, "ideal", post.status)

	assert.Equal(t, "Monstera        ", r.lcd.rows[0])
	assert.Equal(t, "1800 ideal      ", r.lcd.rows[1])
}

// A corrupted climate read skips the whole cycle: no upload, no display
// write, and the timer is left alone so the next tick retries.
func Test_ClimateFailureSkipsCycle(t *testing.T) {
	r := newTestRig()
	r.clim.err = sensors.ErrInvalidReading
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	assert.Empty(t, r.cloud.posts)
	assert.Zero(t, r.lcd.writes)
	assert.True(t, st.lastPost.IsZero())

	// sensor recovers, next tick posts
	r.clim.err = nil
	st = r.s.tick(st)
	assert.Len(t, r.cloud.posts, 1)
	assert.False(t, st.lastPost.IsZero())
}

func Test_SoilFailureSkipsCycle(t *testing.T) {
	r := newTestRig()
	r.soil.err = assert.AnError
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	assert.Empty(t, r.cloud.posts)
	assert.Zero(t, r.lcd.writes)
	assert.True(t, st.lastPost.IsZero())
}

func Test_ConnectFailure(t *testing.T) {
	r := newTestRig()
	r.cloud.connectOK = false
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	assert.Empty(t, r.cloud.posts)
	assert.Equal(t, "Connection failed", r.lcd.rows[1])
	// the attempt still counts: retry happens on the next scheduled tick,
	// not on every poll
	assert.False(t, st.lastPost.IsZero())

	st = r.s.tick(st)
	assert.Equal(t, 1, r.cloud.connects)
}

func Test_PostFailureLogsOnly(t *testing.T) {
	r := newTestRig()
	r.cloud.code = http.StatusUnauthorized
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	require.Len(t, r.cloud.posts, 1)
	assert.False(t, st.lastPost.IsZero())

	// no retry before the next interval
	r.clock.Advance(time.Second)
	r.s.tick(st)
	assert.Len(t, r.cloud.posts, 1)
}

func Test_TestModeSkipsUpload(t *testing.T) {
	r := newTestRig()
	r.s.testMode = true
	st := appState{mode: ModeMonitoring}

	st = r.s.tick(st)
	assert.Zero(t, r.cloud.connects)
	assert.Empty(t, r.cloud.posts)
	// readings still shown and the cadence still respected
	assert.Equal(t, "1800 ideal      ", r.lcd.rows[1])
	assert.False(t, st.lastPost.IsZero())
}

func Test_SinksReceiveReading(t *testing.T) {
	r := newTestRig()
	rec := &fakeRecorder{}
	pb := &fakePublisher{}
	r.s.db = rec
	r.s.pub = pb
	st := appState{mode: ModeMonitoring}

	r.s.tick(st)
	require.Len(t, rec.params, 1)
	assert.Equal(t, "Monstera", rec.params[0].Profile)
	assert.Equal(t, 1800, rec.params[0].SoilRaw)
	assert.Equal(t, "ideal", rec.params[0].Status)

	require.Len(t, pb.readings, 1)
	assert.Equal(t, 21.5, pb.readings[0].Temperature)
	assert.Equal(t, r.clock.Now(), pb.readings[0].Time)
}

func Test_CalibrationStreamsRaw(t *testing.T) {
	r := newTestRig()
	st := appState{mode: ModeCalibration}

	st = r.s.tick(st)
	assert.Equal(t, ModeCalibration, st.mode)
	assert.Equal(t, "Calibration     ", r.lcd.rows[0])
	assert.Equal(t, "raw: 1800       ", r.lcd.rows[1])
	assert.Empty(t, r.cloud.posts)

	// buttons do nothing in calibration
	r.sel.pressed = true
	st = r.s.tick(st)
	assert.Equal(t, ModeCalibration, st.mode)
}

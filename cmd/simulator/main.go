package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/jengzang/uav-ground-control/internal/client"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/sim"
	"github.com/jengzang/uav-ground-control/internal/spatial"
	"github.com/jengzang/uav-ground-control/internal/spool"
)

// Terminals report presses but not releases, so a press holds the key for
// this long and auto-repeat keeps extending it.
const holdFor = 150 * time.Millisecond

func main() {
	apiURL := flag.String("api", envOr("UAV_API", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("UAV_TOKEN"), "bearer token for write requests")
	spoolDir := flag.String("spool", defaultSpoolDir(), "directory for recordings that failed to upload")
	lat := flag.Float64("lat", sim.DefaultStart.Lat, "start latitude")
	lng := flag.Float64("lng", sim.DefaultStart.Lng, "start longitude")
	tick := flag.Duration("tick", sim.DefaultTick, "simulation tick")
	sample := flag.Int("sample", 1, "record every Nth movement tick")
	telemetry := flag.Duration("telemetry", time.Second, "position report interval, 0 disables")
	resume := flag.Bool("resume", true, "start at the last reported position unless -lat or -lng is given")
	logFile := flag.String("log", "", "log file (logs are discarded when empty)")
	flag.Parse()

	explicitStart := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			explicitStart = true
		}
	})

	if err := run(options{
		api: *apiURL, token: *token, spool: *spoolDir,
		start: spatial.NewWaypoint(*lat, *lng), tick: *tick, sample: *sample,
		telemetry: *telemetry, logFile: *logFile,
		resume: *resume && !explicitStart,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	api, token, spool, logFile string
	start                      spatial.Waypoint
	tick, telemetry            time.Duration
	sample                     int
	resume                     bool
}

func run(opts options) error {
	logger := logging.Noop()
	if opts.logFile != "" {
		logger = logging.New(logging.Config{Level: "info", Format: "json", File: opts.logFile})
	}

	sp, err := spool.Open(opts.spool)
	if err != nil {
		return err
	}

	api := client.New(opts.api, client.WithToken(opts.token))
	start, startMsg := opts.start, ""
	if opts.resume {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		start, err = resumePosition(ctx, api, opts.start)
		cancel()
		switch {
		case err != nil:
			startMsg = "Could not load last position: " + err.Error()
			logger.Warn(context.Background(), "resume position unavailable", logging.Err(err))
		case start != opts.start:
			startMsg = "Resumed at last reported position"
		}
	}

	simulator, err := sim.New(api, api, sim.Options{
		Start:          start,
		Tick:           opts.tick,
		SampleEvery:    opts.sample,
		TelemetryEvery: opts.telemetry,
		Spool:          sp,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if startMsg != "" {
		simulator.SetMessage(startMsg)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- simulator.Run(ctx) }()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	app := &app{sim: simulator, api: api, ctx: ctx}
	frame := time.NewTicker(100 * time.Millisecond)
	defer frame.Stop()

	for {
		render(screen, simulator.Status(), simulator.Pending(), app.savedList())
		screen.Show()

		select {
		case <-ctx.Done():
			stopForExit(simulator)
			return <-done
		case ev := <-events:
			if app.handle(ev, screen) {
				stopForExit(simulator)
				cancel()
				return <-done
			}
		case <-frame.C:
		}
	}
}

// stopForExit ends an active recording so it is uploaded or kept as
// pending instead of being thrown away on quit
func stopForExit(simulator *sim.Simulator) {
	if simulator.Status().State == sim.Recording {
		_ = simulator.StopRecording()
	}
}

type positionSource interface {
	LatestPosition(ctx context.Context) (*models.UAVPosition, error)
}

// resumePosition returns the last position the API recorded, or fallback
// when there is none or it cannot be fetched
func resumePosition(ctx context.Context, src positionSource, fallback spatial.Waypoint) (spatial.Waypoint, error) {
	p, err := src.LatestPosition(ctx)
	if err != nil {
		return fallback, err
	}
	if p == nil {
		return fallback, nil
	}
	wp := spatial.NewWaypoint(p.Latitude, p.Longitude)
	if !wp.Valid() {
		return fallback, fmt.Errorf("last position %s out of range", wp)
	}
	return wp, nil
}

// maxListed is how many saved trajectories the list view numbers for deletion
const maxListed = 9

type app struct {
	sim *sim.Simulator
	api *client.Client
	ctx context.Context

	mu       sync.Mutex
	showList bool
	saved    []models.Trajectory
}

// savedList returns the trajectories to show, or nil when the list is hidden
func (a *app) savedList() []models.Trajectory {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.showList {
		return nil
	}
	return a.saved
}

func (a *app) refreshList() {
	list, err := a.api.ListTrajectories(a.ctx)
	if err != nil {
		a.sim.SetMessage("Failed to load trajectories: " + err.Error())
		return
	}
	if len(list) > maxListed {
		list = list[:maxListed]
	}
	a.mu.Lock()
	a.saved = list
	a.mu.Unlock()
	if len(list) == 0 {
		a.sim.SetMessage("No saved trajectories")
	}
}

func (a *app) deleteListed(n int) {
	a.mu.Lock()
	if !a.showList || n < 1 || n > len(a.saved) {
		a.mu.Unlock()
		return
	}
	t := a.saved[n-1]
	a.mu.Unlock()

	a.sim.SetMessage("Deleting " + t.Name + "...")
	go func() {
		err := a.api.DeleteTrajectory(a.ctx, t.ID)
		switch {
		case errors.Is(err, client.ErrRequestInFlight):
			a.sim.SetMessage("Delete already in progress")
			return
		case client.IsNotFound(err):
			a.sim.SetMessage(t.Name + " was already deleted")
		case err != nil:
			a.sim.SetMessage("Failed to delete trajectory: " + err.Error())
			return
		default:
			a.sim.SetMessage("Deleted " + t.Name)
		}
		a.refreshList()
	}()
}

// handle applies one terminal event and reports whether to quit
func (a *app) handle(ev tcell.Event, screen tcell.Screen) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		screen.Sync()
	case *tcell.EventKey:
		until := time.Now().Add(holdFor)
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			a.sim.Keys().Tap(sim.KeyUp, until)
		case tcell.KeyDown:
			a.sim.Keys().Tap(sim.KeyDown, until)
		case tcell.KeyLeft:
			a.sim.Keys().Tap(sim.KeyLeft, until)
		case tcell.KeyRight:
			a.sim.Keys().Tap(sim.KeyRight, until)
		case tcell.KeyRune:
			return a.handleRune(ev.Rune(), until)
		}
	}
	return false
}

func (a *app) handleRune(r rune, until time.Time) bool {
	switch r {
	case 'q', 'Q':
		return true
	case 'w', 'W':
		a.sim.Keys().Tap(sim.KeyUp, until)
	case 's', 'S':
		a.sim.Keys().Tap(sim.KeyDown, until)
	case 'a', 'A':
		a.sim.Keys().Tap(sim.KeyLeft, until)
	case 'd', 'D':
		a.sim.Keys().Tap(sim.KeyRight, until)
	case ' ':
		a.sim.Keys().ReleaseAll()
	case 'r', 'R':
		_ = a.sim.ToggleRecording()
	case '+', '=':
		a.sim.Faster()
	case '-', '_':
		a.sim.Slower()
	case 'p', 'P':
		if pending := a.sim.Pending(); len(pending) > 0 {
			id := pending[0].ID
			a.sim.SetMessage("Retrying " + pending[0].Name + "...")
			go func() {
				if err := a.sim.Retry(a.ctx, id); errors.Is(err, sim.ErrRetryInProgress) {
					a.sim.SetMessage("Upload already in progress")
				}
			}()
		}
	case 'l', 'L':
		a.mu.Lock()
		a.showList = !a.showList
		show := a.showList
		a.mu.Unlock()
		if show {
			go a.refreshList()
		}
	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		a.deleteListed(int(r - '0'))
	case 'x', 'X':
		if pending := a.sim.Pending(); len(pending) > 0 {
			if err := a.sim.Discard(pending[0].ID); errors.Is(err, sim.ErrRetryInProgress) {
				a.sim.SetMessage("Cannot discard while the upload is running")
			}
		}
	case 'c', 'C':
		a.sim.SetMessage("Clearing saved trajectories...")
		go func() {
			n, err := a.api.ClearTrajectories(a.ctx)
			switch {
			case errors.Is(err, client.ErrRequestInFlight):
				a.sim.SetMessage("Clear already in progress")
			case err != nil:
				a.sim.SetMessage("Failed to clear trajectories: " + err.Error())
			default:
				a.sim.SetMessage(fmt.Sprintf("Cleared %d trajectories", n))
				a.mu.Lock()
				a.saved = nil
				a.mu.Unlock()
			}
		}()
	}
	return false
}

func render(screen tcell.Screen, st sim.Status, pending []spool.Entry, saved []models.Trajectory) {
	screen.Clear()
	width, _ := screen.Size()

	styleHeader := tcell.StyleDefault.Bold(true).Reverse(true)
	styleDefault := tcell.StyleDefault
	styleRec := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHelp := tcell.StyleDefault.Foreground(tcell.ColorGray)

	drawText(screen, 0, 0, width, styleHeader, " UAV Simulator")
	drawText(screen, 0, 2, width, styleDefault, fmt.Sprintf(" Position  %.6f, %.6f", st.Position.Lat, st.Position.Lng))
	drawText(screen, 0, 3, width, styleDefault, fmt.Sprintf(" Heading   %.0f°", st.Heading))
	drawText(screen, 0, 4, width, styleDefault, fmt.Sprintf(" Speed     %s (%g°/tick)", st.SpeedLabel, st.Speed))

	if st.State == sim.Recording {
		drawText(screen, 0, 5, width, styleRec, fmt.Sprintf(" ● REC     %d points", st.Points))
	} else {
		drawText(screen, 0, 5, width, styleDefault, " Idle")
	}

	y := 7
	if len(pending) > 0 {
		drawText(screen, 0, y, width, styleRec, fmt.Sprintf(" %d recording(s) not uploaded", len(pending)))
		y++
		for _, e := range pending {
			line := fmt.Sprintf("   %s  %d pts  %d tries  %s", e.Name, len(e.Points), e.Attempts, e.LastError)
			drawText(screen, 0, y, width, styleDefault, truncate(line, width))
			y++
		}
		y++
	}

	if len(saved) > 0 {
		drawText(screen, 0, y, width, styleDefault, " Saved trajectories (press 1-9 to delete)")
		y++
		for i, t := range saved {
			line := fmt.Sprintf("   %d  %s  %d pts  %ds  %.0fm", i+1, t.Name, len(t.Points), t.Duration, t.Distance)
			drawText(screen, 0, y, width, styleDefault, truncate(line, width))
			y++
		}
		y++
	}

	if st.Message != "" {
		drawText(screen, 0, y, width, styleDefault, " "+st.Message)
	}

	help := []string{
		" WASD/arrows move   space stop   r record   +/- speed",
		" p retry pending   x discard pending   l saved list   c clear all   q quit",
	}
	_, height := screen.Size()
	for i, line := range help {
		drawText(screen, 0, height-len(help)+i, width, styleHelp, line)
	}
}

func drawText(screen tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultSpoolDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "uav-simulator", "spool")
	}
	return filepath.Join(os.TempDir(), "uav-simulator-spool")
}

// Command watch runs the horde in-process and draws it in the terminal.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"zombie-horde/internal/config"
	"zombie-horde/internal/horde"
	"zombie-horde/internal/host"
)

// drawInterval paces redraws only. The engine steps at the configured tick
// rate so the performance controller sees a real frame rate.
const drawInterval = 33 * time.Millisecond

type viewer struct {
	screen tcell.Screen
	engine *horde.Engine
	driver *host.Driver
	half   float64
	tick   time.Duration

	snap   horde.Snapshot
	paused bool
}

func newScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return screen, nil
}

func newViewer(screen tcell.Screen, cfg config.SimConfig) *viewer {
	driver := host.New(host.DefaultConfig())
	engine := horde.NewEngine(cfg, driver)
	driver.Attach(engine)

	return &viewer{
		screen: screen,
		engine: engine,
		driver: driver,
		half:   cfg.Arena.HalfExtent,
		tick:   time.Second / time.Duration(cfg.TickRate),
	}
}

func (v *viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
			v.engine.ResetWave()
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			v.paused = !v.paused
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *viewer) run() {
	stepTicker := time.NewTicker(v.tick)
	defer stepTicker.Stop()
	drawTicker := time.NewTicker(drawInterval)
	defer drawTicker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- v.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !v.handleInput(ev) {
				return
			}
		case now := <-stepTicker.C:
			v.step(now)
		case <-drawTicker.C:
			v.draw()
		}
	}
}

func (v *viewer) step(now time.Time) {
	if v.paused {
		return
	}
	v.engine.Step(now)
	v.driver.Update(now)
}

func (v *viewer) draw() {
	v.screen.Clear()
	if !v.engine.LatestSnapshot(&v.snap) {
		v.screen.Show()
		return
	}

	w, h := v.screen.Size()
	view := newViewport(w, h-1, v.half)

	border := tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	for x := 0; x < view.cols; x++ {
		v.screen.SetContent(view.left+x, 0, '─', nil, border)
		v.screen.SetContent(view.left+x, view.rows+1, '─', nil, border)
	}

	warn := tcell.StyleDefault.Foreground(tcell.ColorPurple)
	for _, wv := range v.snap.Warnings {
		if col, row, ok := view.cell(wv.X, wv.Z); ok {
			v.screen.SetContent(col, row, '◌', nil, warn)
		}
	}

	boom := tcell.StyleDefault.Foreground(tcell.ColorOrange)
	for _, ex := range v.snap.Explosions {
		if col, row, ok := view.cell(ex.X, ex.Z); ok {
			v.screen.SetContent(col, row, '✶', nil, boom)
		}
	}

	for _, e := range v.snap.Entities {
		col, row, ok := view.cell(e.X, e.Z)
		if !ok {
			continue
		}
		if e.Dying {
			v.screen.SetContent(col, row, 'x', nil, tcell.StyleDefault.Foreground(tcell.ColorGray))
			continue
		}
		v.screen.SetContent(col, row, 'Z', nil, tcell.StyleDefault.Foreground(healthColor(e.Health)))
	}

	if col, row, ok := view.cell(v.snap.Player.X, v.snap.Player.Z); ok {
		v.screen.SetContent(col, row, '@', nil, tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true))
	}

	st := v.driver.Stats()
	status := fmt.Sprintf(" wave %d | %s %.0ffps | zombies %d | kills %d | hp %d | deaths %d ",
		v.snap.Wave, v.snap.Tier, v.snap.AverageFPS, v.snap.ActiveCount, v.snap.Kills, st.Health, st.Deaths)
	if v.paused {
		status += "| PAUSED "
	}
	drawText(v.screen, 0, h-1, status+"| r reset, space pause, q quit", tcell.StyleDefault.Reverse(true))

	v.screen.Show()
}

func healthColor(health int) tcell.Color {
	switch {
	case health > 75:
		return tcell.ColorGreen
	case health > 50:
		return tcell.ColorYellow
	case health > 25:
		return tcell.ColorOrange
	default:
		return tcell.ColorRed
	}
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v\n", err)
		os.Exit(1)
	}

	// The screen owns the terminal; keep engine logs out of it.
	if f, err := os.Create("watch.log"); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	screen, err := newScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := newViewer(screen, cfg.Sim)
	v.run()
}

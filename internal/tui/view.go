// Package tui renders the live dashboard. All pipeline data is read
// from published snapshots; the redraw path never blocks on sampling.
package tui

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/binsquare/soctop/internal/pipeline"
	"github.com/binsquare/soctop/internal/sysmon"
)

const (
	tabOverview = iota
	tabCPU
	tabGPU
	tabMemory
	tabSoC
	tabCount
)

var tabTitles = [tabCount]string{"Overview", "CPU", "GPU", "Memory", "SoC"}

// The memory breakdown spawns vm_stat, so it refreshes on its own slow
// cadence instead of every frame.
const vmStatInterval = 5 * time.Second

// Provider is the part of the pipeline the dashboard reads.
type Provider interface {
	Latest() *pipeline.State
	Phase() pipeline.Phase
}

// Options configure a View.
type Options struct {
	Version string
	Accent  string        // tview color name for labels
	Refresh time.Duration // redraw cadence
}

// View is the dashboard. Create with New, drive with Run.
type View struct {
	app      *tview.Application
	provider Provider
	version  string
	accent   string
	refresh  time.Duration

	layout *tview.Flex
	header *tview.TextView
	tabBar *tview.TextView
	body   *tview.TextView
	footer *tview.TextView

	mu         sync.RWMutex
	currentTab int
	vmStat     sysmon.VMStat
	vmStatOK   bool
	vmFetching bool
	lastVMStat time.Time
}

// New builds the dashboard around a snapshot provider.
func New(provider Provider, opts Options) *View {
	if opts.Accent == "" {
		opts.Accent = "cyan"
	}
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}

	v := &View{
		app:      tview.NewApplication(),
		provider: provider,
		version:  opts.Version,
		accent:   opts.Accent,
		refresh:  opts.Refresh,
	}
	v.createComponents()
	v.setupInputHandler()
	return v
}

func (v *View) createComponents() {
	v.header = tview.NewTextView().SetDynamicColors(true)
	v.tabBar = tview.NewTextView().SetDynamicColors(true)
	v.body = tview.NewTextView().SetDynamicColors(true)
	v.footer = tview.NewTextView().SetDynamicColors(true)
	v.footer.SetText(" [gray]q[-] quit   [gray]h/l[-] switch tab   [gray]1-5[-] jump to tab")

	v.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.header, 1, 0, false).
		AddItem(v.tabBar, 1, 0, false).
		AddItem(v.body, 0, 1, true).
		AddItem(v.footer, 1, 0, false)
}

func (v *View) setupInputHandler() {
	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			v.app.Stop()
			return nil
		case tcell.KeyLeft:
			v.cycleTab(-1)
			return nil
		case tcell.KeyRight:
			v.cycleTab(1)
			return nil
		case tcell.KeyRune:
			switch r := event.Rune(); r {
			case 'q':
				v.app.Stop()
				return nil
			case 'h':
				v.cycleTab(-1)
				return nil
			case 'l':
				v.cycleTab(1)
				return nil
			case '1', '2', '3', '4', '5':
				v.setTab(int(r - '1'))
				return nil
			}
		}
		return event
	})
}

func (v *View) cycleTab(delta int) {
	v.mu.Lock()
	v.currentTab = (v.currentTab + delta + tabCount) % tabCount
	v.mu.Unlock()
	v.redrawNow()
}

func (v *View) setTab(tab int) {
	if tab < 0 || tab >= tabCount {
		return
	}
	v.mu.Lock()
	v.currentTab = tab
	v.mu.Unlock()
	v.redrawNow()
}

// redrawNow repaints outside the ticker so tab switches feel
// immediate. Safe on the event goroutine: tview runs input capture and
// draws on the same loop.
func (v *View) redrawNow() {
	v.render(v.provider.Latest(), v.provider.Phase())
}

// Run starts the refresh loop and blocks in the terminal event loop
// until the user quits or Stop is called.
func (v *View) Run(ctx context.Context) error {
	go v.refreshLoop(ctx)
	return v.app.SetRoot(v.layout, true).Run()
}

// Stop ends the event loop. Safe from any goroutine.
func (v *View) Stop() { v.app.Stop() }

func (v *View) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(v.refresh)
	defer ticker.Stop()

	// First paint before the first tick so the startup screen shows
	// immediately.
	v.app.QueueUpdateDraw(func() {
		v.render(v.provider.Latest(), v.provider.Phase())
	})

	for {
		select {
		case <-ctx.Done():
			v.app.Stop()
			return
		case <-ticker.C:
			st := v.provider.Latest()
			phase := v.provider.Phase()
			v.app.QueueUpdateDraw(func() {
				v.render(st, phase)
			})
		}
	}
}

// render repaints every pane from one snapshot.
func (v *View) render(st *pipeline.State, phase pipeline.Phase) {
	v.mu.RLock()
	tab := v.currentTab
	vm, vmOK := v.vmStat, v.vmStatOK
	v.mu.RUnlock()

	v.header.SetText(headerText(st, phase, v.version, v.accent))
	v.tabBar.SetText(tabBarText(tab, v.accent))

	if st == nil {
		v.body.SetText(startupText(phase))
		return
	}

	_, _, width, _ := v.body.GetInnerRect()

	switch tab {
	case tabOverview:
		v.body.SetText(overviewText(st, v.accent, width))
	case tabCPU:
		v.body.SetText(cpuTabText(st, v.accent, width))
	case tabGPU:
		v.body.SetText(gpuTabText(st, v.accent, width))
	case tabMemory:
		v.maybeCollectVMStat()
		v.body.SetText(memoryTabText(st, vm, vmOK, v.accent, width))
	case tabSoC:
		v.body.SetText(socTabText(st, v.accent))
	}
}

// maybeCollectVMStat refreshes the memory breakdown in the background
// when the cached one has aged out. The render path only ever reads
// the cache.
func (v *View) maybeCollectVMStat() {
	v.mu.Lock()
	stale := !v.vmFetching && time.Since(v.lastVMStat) >= vmStatInterval
	if stale {
		v.vmFetching = true
	}
	v.mu.Unlock()
	if !stale {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		vm, err := sysmon.ReadVMStat(ctx)

		v.mu.Lock()
		v.vmFetching = false
		v.lastVMStat = time.Now()
		if err == nil {
			v.vmStat = vm
			v.vmStatOK = true
		}
		v.mu.Unlock()
	}()
}

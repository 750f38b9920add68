// Package tray provides a system tray interface for the fingerspell demo.
package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/fingerspell/internal/display"
)

// Tray represents the system tray application.
type Tray struct {
	board   *display.Board
	onStart func() error
	onExit  func() error
	onOpen  func()
	onQuit  func()
	running bool
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLetter *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray that mirrors the given board.
func New(board *display.Board) *Tray {
	return &Tray{board: board}
}

// OnStart sets the callback for the Start menu item.
func (t *Tray) OnStart(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnExit sets the callback for the Exit menu item.
func (t *Tray) OnExit(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExit = fn
}

// OnOpen sets the callback for opening the web UI.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onTrayExit)
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Fingerspell")
	systray.SetTooltip("Fingerspelling recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(false), "Start or exit the demo")
	systray.AddSeparator()

	t.menuLetter = systray.AddMenuItem(letterTitle(display.Placeholder()), "Current letter")
	t.menuLetter.Disable()
	t.menuStatus = systray.AddMenuItem(display.StatusInitializing, "Status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the demo page")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Fingerspell")

	if t.board != nil {
		go t.watch()
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onTrayExit is called when the system tray is about to exit.
func (t *Tray) onTrayExit() {}

// watch mirrors board changes into the menu until the board goes away.
func (t *Tray) watch() {
	updates, unsubscribe := t.board.Subscribe()
	defer unsubscribe()

	for state := range updates {
		t.SetState(state)
	}
}

// SetState updates the menu to reflect st.
func (t *Tray) SetState(st display.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = st.Running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(st.Running))
	}
	if t.menuLetter != nil {
		t.menuLetter.SetTitle(letterTitle(st.Update))
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(st.Status)
	}
}

// handleToggle starts the demo when stopped and exits it when running.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	running := t.running
	callback := t.onStart
	if running {
		callback = t.onExit
	}
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback == nil {
		return
	}
	if err := callback(); err != nil {
		log.Printf("Tray action failed: %v", err)
	}
}

// handleOpen handles the open menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsRunning returns whether the tray believes a demo is active.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func toggleTitle(running bool) string {
	if running {
		return "■ Exit Demo"
	}
	return "▶ Start Demo"
}

func letterTitle(u display.Update) string {
	return fmt.Sprintf("Letter: %s (%s)", u.Label, u.Confidence)
}

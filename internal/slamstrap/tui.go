package slamstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// logEntry is one build log on disk.
type logEntry struct {
	name    string
	path    string
	content string
}

// logViewer is the full-screen viewer behind `slamstrap log`. It tails the
// per-target build logs written during configure/build/install, reloading
// them on a short ticker so a running build can be watched live.
type logViewer struct {
	cfg *Config

	app       *tview.Application
	header    *tview.TextView
	logView   *tview.TextView
	footer    *tview.TextView
	flex      *tview.Flex
	logs      []logEntry
	activeIdx int
	updates   chan []logEntry
}

func (v *logViewer) readLogs() []logEntry {
	candidates := []logEntry{
		{name: "g2o", path: g2oTarget(v.cfg).LogPath()},
		{name: "openvslam", path: openVSLAMTarget(v.cfg).LogPath()},
	}
	var out []logEntry
	for _, c := range candidates {
		data, err := os.ReadFile(c.path)
		if err != nil {
			continue
		}
		c.content = string(data)
		out = append(out, c)
	}
	return out
}

func (v *logViewer) redraw() {
	if len(v.logs) == 0 {
		v.header.SetText("no build logs yet")
		v.logView.SetText("Run the pipeline first; logs appear under each build directory.")
		return
	}
	if v.activeIdx >= len(v.logs) {
		v.activeIdx = len(v.logs) - 1
	}
	active := v.logs[v.activeIdx]

	tabs := ""
	for i, l := range v.logs {
		if i == v.activeIdx {
			tabs += fmt.Sprintf("[black:blue] %s [-:-] ", l.name)
		} else {
			tabs += fmt.Sprintf(" %s  ", l.name)
		}
	}
	v.header.SetText(tabs)
	v.logView.SetText(tview.TranslateANSI(active.content))
	v.logView.ScrollToEnd()
	v.footer.SetText(fmt.Sprintf("%s\n←/→ switch target   ↑/↓ scroll   q quit", active.path))
}

func runLogViewer(cfg *Config) error {
	v := &logViewer{
		cfg:     cfg,
		app:     tview.NewApplication(),
		updates: make(chan []logEntry, 4),
	}

	v.header = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	v.header.SetBorder(true)
	v.header.SetTitle("slamstrap build logs")

	v.logView = tview.NewTextView().SetDynamicColors(true).SetWrap(false).SetScrollable(true)
	v.logView.SetBorder(true)

	v.footer = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	v.footer.SetBorder(true)

	v.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.header, 3, 0, false).
		AddItem(v.logView, 0, 1, true).
		AddItem(v.footer, 4, 0, false)

	v.flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			v.app.Stop()
			return nil
		case tcell.KeyLeft:
			if len(v.logs) > 0 {
				v.activeIdx = (v.activeIdx + len(v.logs) - 1) % len(v.logs)
				v.redraw()
			}
			return nil
		case tcell.KeyRight, tcell.KeyTab:
			if len(v.logs) > 0 {
				v.activeIdx = (v.activeIdx + 1) % len(v.logs)
				v.redraw()
			}
			return nil
		case tcell.KeyUp:
			row, _ := v.logView.GetScrollOffset()
			if row > 0 {
				v.logView.ScrollTo(row-1, 0)
			}
			return nil
		case tcell.KeyDown:
			row, _ := v.logView.GetScrollOffset()
			v.logView.ScrollTo(row+1, 0)
			return nil
		case tcell.KeyHome:
			v.logView.ScrollToBeginning()
			return nil
		case tcell.KeyEnd:
			v.logView.ScrollToEnd()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				v.app.Stop()
				return nil
			}
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			logs := v.readLogs()
			select {
			case v.updates <- logs:
			default:
			}
		}
	}()

	go func() {
		for logs := range v.updates {
			v.logs = logs
			v.app.QueueUpdateDraw(v.redraw)
		}
	}()

	v.logs = v.readLogs()
	v.redraw()
	return v.app.SetRoot(v.flex, true).SetFocus(v.logView).Run()
}

package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/blockfall/game/engine"
)

const (
	// cellWidth is the number of terminal columns per board cell
	cellWidth = 2
	boardLeft = 2
	boardTop  = 1
	// sidebar starts right of the board and its border
	sidebarLeft = boardLeft + engine.Columns*cellWidth + 4
)

var (
	styleDefault = tcell.StyleDefault
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleGhost   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleAlert   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// kindStyle fills a cell with the kind's color
func kindStyle(k engine.Kind) tcell.Style {
	color := tcell.GetColor(k.Color())
	return tcell.StyleDefault.Background(color).Foreground(color)
}

// View renders snapshots onto a tcell screen
type View struct {
	screen tcell.Screen
	help   []string
}

// NewView creates a view drawing to screen
func NewView(screen tcell.Screen) *View {
	return &View{
		screen: screen,
		help: []string{
			"←/→  move",
			"↓    soft drop",
			"↑/x  rotate",
			"space hard drop",
			"t    tick (turn-based)",
			"p    pause",
			"r    restart",
			"q    quit",
		},
	}
}

// Draw renders a full frame
func (v *View) Draw(snap *engine.Snapshot) {
	v.screen.Clear()
	v.drawBorder()
	v.drawBoard(snap)
	v.drawSidebar(snap)
	v.screen.Show()
}

func (v *View) drawBorder() {
	right := boardLeft + engine.Columns*cellWidth
	bottom := boardTop + engine.Rows
	for y := boardTop; y < bottom; y++ {
		v.screen.SetContent(boardLeft-1, y, '│', nil, styleBorder)
		v.screen.SetContent(right, y, '│', nil, styleBorder)
	}
	for x := boardLeft; x < right; x++ {
		v.screen.SetContent(x, boardTop-1, '─', nil, styleBorder)
		v.screen.SetContent(x, bottom, '─', nil, styleBorder)
	}
	v.screen.SetContent(boardLeft-1, boardTop-1, '┌', nil, styleBorder)
	v.screen.SetContent(right, boardTop-1, '┐', nil, styleBorder)
	v.screen.SetContent(boardLeft-1, bottom, '└', nil, styleBorder)
	v.screen.SetContent(right, bottom, '┘', nil, styleBorder)
}

func (v *View) drawBoard(snap *engine.Snapshot) {
	for y := 0; y < engine.Rows; y++ {
		for x := 0; x < engine.Columns; x++ {
			cell := snap.Cells[y][x]
			sx := boardLeft + x*cellWidth
			sy := boardTop + y

			switch cell.Type {
			case engine.CellLocked, engine.CellActive:
				kind := cell.Kind
				if cell.Type == engine.CellActive && snap.Active != nil {
					kind = snap.Active.Kind
				}
				v.fill(sx, sy, ' ', kindStyle(kind))
			case engine.CellGhost:
				v.fill(sx, sy, '░', styleGhost)
			default:
				v.screen.SetContent(sx, sy, ' ', nil, styleDefault)
				v.screen.SetContent(sx+1, sy, '·', nil, styleGhost)
			}
		}
	}
}

func (v *View) fill(x, y int, r rune, style tcell.Style) {
	for i := 0; i < cellWidth; i++ {
		v.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (v *View) drawSidebar(snap *engine.Snapshot) {
	y := boardTop
	v.text(sidebarLeft, y, "BLOCKFALL", styleTitle)
	y += 2
	v.text(sidebarLeft, y, fmt.Sprintf("Score  %d", snap.Score), styleDefault)
	v.text(sidebarLeft, y+1, fmt.Sprintf("Lines  %d", snap.Lines), styleDefault)
	v.text(sidebarLeft, y+2, fmt.Sprintf("Level  %d", snap.Level), styleDefault)
	v.text(sidebarLeft, y+3, fmt.Sprintf("Speed  %s", snap.GravityInterval), styleDefault)
	y += 5

	v.text(sidebarLeft, y, "Next", styleTitle)
	v.drawPreview(sidebarLeft, y+1, snap.Next)
	y += 4

	switch {
	case snap.GameOver:
		v.text(sidebarLeft, y, "GAME OVER", styleAlert)
		v.text(sidebarLeft, y+1, "r to play again", styleDefault)
	case snap.Paused:
		v.text(sidebarLeft, y, "PAUSED", styleAlert)
	case snap.Status == engine.StatusIdle:
		v.text(sidebarLeft, y, "Press any key", styleAlert)
	}
	y += 3

	for i, line := range v.help {
		v.text(sidebarLeft, y+i, line, styleBorder)
	}
}

// drawPreview draws kind in its spawn rotation inside a 4x2 box
func (v *View) drawPreview(x, y int, kind engine.Kind) {
	if !kind.Valid() {
		return
	}
	for _, c := range engine.NewPiece(kind).Cells() {
		if c.Y < 0 || c.Y > 1 {
			continue
		}
		v.fill(x+c.X*cellWidth, y+c.Y, ' ', kindStyle(kind))
	}
}

func (v *View) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

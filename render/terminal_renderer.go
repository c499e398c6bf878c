package render

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
)

// upperHalf paints the top pixel with the foreground, the bottom with the background
const upperHalf = '▀'

// hudShade darkens cells under HUD text toward the background color
const hudShade = 0.6

// TerminalRenderer presents a canvas on a tcell screen, two pixel rows per cell
type TerminalRenderer struct {
	screen tcell.Screen
	width  int
	height int
}

// NewTerminalRenderer creates a renderer sized to the screen
func NewTerminalRenderer(screen tcell.Screen) *TerminalRenderer {
	w, h := screen.Size()
	return &TerminalRenderer{screen: screen, width: w, height: h}
}

// Resize refreshes cached screen dimensions
func (r *TerminalRenderer) Resize() {
	r.width, r.height = r.screen.Size()
}

// PixelSize is the canvas size that maps one-to-one onto the screen
func (r *TerminalRenderer) PixelSize() (int, int) {
	return r.width, r.height * 2
}

// RenderFrame blits the canvas and overlays HUD lines as text cells
func (r *TerminalRenderer) RenderFrame(img *image.RGBA, hud []string, highlight map[int]color.RGBA) {
	b := img.Bounds()
	for y := 0; y < r.height; y++ {
		top, bottom := 2*y, 2*y+1
		for x := 0; x < r.width; x++ {
			if x >= b.Dx() || top >= b.Dy() {
				r.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(toTcell(ColorBG)))
				continue
			}
			fg := img.RGBAAt(b.Min.X+x, b.Min.Y+top)
			bg := fg
			if bottom < b.Dy() {
				bg = img.RGBAAt(b.Min.X+x, b.Min.Y+bottom)
			}
			style := tcell.StyleDefault.Foreground(toTcell(fg)).Background(toTcell(bg))
			r.screen.SetContent(x, y, upperHalf, nil, style)
		}
	}

	for row, line := range hud {
		if row >= r.height {
			break
		}
		col := ColorPrimary
		if c, ok := highlight[row]; ok {
			col = c
		}
		r.drawText(1, row, line, col)
	}

	r.screen.Show()
}

// drawText writes a line over the existing cells, shading their background
func (r *TerminalRenderer) drawText(x, y int, s string, col color.RGBA) {
	for _, ch := range s {
		if x >= r.width {
			return
		}
		under := ColorBG
		_, _, style, _ := r.screen.GetContent(x, y)
		if _, bg, _ := style.Decompose(); bg != tcell.ColorDefault {
			cr, cg, cb := bg.RGB()
			under = color.RGBA{R: uint8(cr), G: uint8(cg), B: uint8(cb), A: 255}
		}
		bg := toTcell(Blend(under, ColorBG, hudShade))
		r.screen.SetContent(x, y, ch, nil, tcell.StyleDefault.Foreground(toTcell(col)).Background(bg))
		x++
	}
}

func toTcell(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/fusion_tracker/internal/geo"
)

var (
	snapBackground = color.RGBA{5, 10, 20, 255}
	snapTrack      = color.RGBA{234, 179, 8, 255}
	snapMarker     = color.RGBA{16, 185, 129, 255}
	snapText       = color.RGBA{226, 232, 240, 255}
)

// renderSnapshot draws the track path and a small HUD into a PNG. The path
// is fit to the image with a 10% margin; latitude grows upward.
func renderSnapshot(w io.Writer, path []geo.Point, headingDeg float64, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(snapBackground), image.Point{}, draw.Src)

	if len(path) > 0 {
		minLat, maxLat := path[0].Lat, path[0].Lat
		minLon, maxLon := path[0].Lon, path[0].Lon
		for _, p := range path[1:] {
			if p.Lat < minLat {
				minLat = p.Lat
			}
			if p.Lat > maxLat {
				maxLat = p.Lat
			}
			if p.Lon < minLon {
				minLon = p.Lon
			}
			if p.Lon > maxLon {
				maxLon = p.Lon
			}
		}

		// Keep a usable scale for single points and straight N-S/E-W walks.
		latSpan := maxLat - minLat
		lonSpan := maxLon - minLon
		if latSpan < 1e-6 {
			latSpan = 1e-6
		}
		if lonSpan < 1e-6 {
			lonSpan = 1e-6
		}

		marginX := float64(width) * 0.1
		marginY := float64(height) * 0.1
		toPixel := func(p geo.Point) (int, int) {
			x := marginX + (p.Lon-minLon)/lonSpan*(float64(width)-2*marginX)
			y := float64(height) - marginY - (p.Lat-minLat)/latSpan*(float64(height)-2*marginY)
			return int(x), int(y)
		}

		for i := 1; i < len(path); i++ {
			x0, y0 := toPixel(path[i-1])
			x1, y1 := toPixel(path[i])
			drawLine(img, x0, y0, x1, y1, snapTrack)
		}

		cx, cy := toPixel(path[len(path)-1])
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				setPixel(img, cx+dx, cy+dy, snapMarker)
			}
		}
	}

	lines := []string{"NO SIGNAL"}
	if len(path) > 0 {
		last := path[len(path)-1]
		lines = []string{
			fmt.Sprintf("LAT %.6f", last.Lat),
			fmt.Sprintf("LON %.6f", last.Lon),
			fmt.Sprintf("HDG %.0f", headingDeg),
			fmt.Sprintf("PTS %d", len(path)),
		}
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(snapText),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(10, 20+i*16)
		drawer.DrawString(line)
	}

	return png.Encode(w, img)
}

// drawLine is a plain integer Bresenham segment.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

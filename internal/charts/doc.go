// Package charts renders dashboard charts as PNG images with gonum/plot.
//
// Trend charts plot monthly totals on a month axis, dimension charts draw
// one line per dimension value and ranking charts draw horizontal bars.
// Empty inputs still render a titled, empty chart so clients always get an
// image back.
package charts

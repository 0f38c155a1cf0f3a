// Package viz renders terminal reports and plots for prediction runs.
//
// Check reports use lipgloss styles; temperature and sweep plots use
// asciigraph.
package viz

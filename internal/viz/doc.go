// Package viz renders binding model output in the terminal.
//
// Static reports (Jacobians, metrics, sparklines) are plain strings styled
// with lipgloss. [Live] is a Bubble Tea model that follows a running
// uptake simulation through a [Forwarder] observer.
//
// # Key Bindings
//
//	Up/Down - Select the plotted bound state
//	Q, Esc  - Stop the simulation and quit
package viz

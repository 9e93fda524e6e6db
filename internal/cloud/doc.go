// Package cloud turns a rotating rig's polar distance grid into a 3D point
// cloud and derives the mesh connectivity of that cloud.
//
// Responsibilities: validating the raw grid, the polar to Cartesian
// transform, and ring/rung edge construction over the cylindrical sampling
// grid. Key types: RawGrid, Point, Edge.
//
// Points are always enumerated position-major, step-minor, so the point for
// (position p, step s) sits at Index(p, s, steps). Edge construction relies on
// that ordering and never looks at the points themselves.
//
// Everything in this package is pure: no I/O, no shared state.
package cloud

// Package domain contains the core entities of the import pipeline:
// import records, row records, their status machines, and the field
// validation shared by every file format. It is independent of any
// storage or delivery mechanism.
package domain

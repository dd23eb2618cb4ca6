// Package archive reads study uploads and writes result bundles as zip files.
//
// Extract unpacks a DICOM upload into a working directory and rejects anything
// that is not a readable, non-empty zip. Create collects regenerated DICOM
// slices into a flat archive next to the working directory.
package archive

// Package workdir manages the on-disk layout of a reconstruction job.
//
// A working directory is named after the uploaded archive plus a time-ordered
// UUID and always holds the same five subdirectories:
//
//	archive/       extracted DICOM upload
//	nii/           NIfTI volumes converted from the upload
//	masks/         brain masks, one per volume
//	output_nii/    <name>.nii.gz, the reconstructed volume
//	output_dicom/  per-slice DICOM regenerated from the volume
//
// The final bundle is written beside them as <name>.zip. Any stage can be run
// against a directory of this shape, so the names are a stable contract.
//
// Paths handed to the containerized tools are rewritten with a Translation,
// and file lists are produced by SearchByExtension, which sorts its results
// so that volumes and masks with matching base names pair up by index.
package workdir

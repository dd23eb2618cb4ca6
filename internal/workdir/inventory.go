package workdir

import (
	"os"
)

// Inventory counts what each stage has left on disk.
type Inventory struct {
	ArchiveFiles     int
	NiftiFiles       int
	MaskFiles        int
	DicomFiles       int
	HasOutputNifti   bool
	HasResultArchive bool
}

// Inventory scans the working directory. Missing subdirectories count as empty.
func (w *WorkingDirectory) Inventory() Inventory {
	var inv Inventory
	inv.ArchiveFiles = countFiles(w.Archive)
	inv.NiftiFiles = countFiles(w.Nifti, NiftiExtensions...)
	inv.MaskFiles = countFiles(w.Masks, MaskExtension)
	inv.DicomFiles = countFiles(w.OutputDicom, ".dcm")
	inv.HasOutputNifti = isFile(w.NiftiOutputPath())
	inv.HasResultArchive = isFile(w.ResultArchivePath())
	return inv
}

func countFiles(dir string, suffixes ...string) int {
	if len(suffixes) == 0 {
		suffixes = []string{""}
	}
	files, err := SearchByExtension(dir, suffixes...)
	if err != nil {
		return 0
	}
	return len(files)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

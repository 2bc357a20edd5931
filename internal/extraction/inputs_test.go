package extraction

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExpandInputs", func() {
	var (
		tmpDir   string
		paths    []string
		exts     []string
		expanded []string
		err      error
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		exts = nil
		Expect(os.MkdirAll(filepath.Join(tmpDir, "scans", "2024"), 0755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(tmpDir, "scans", ".thumbs"), 0755)).To(Succeed())
		writeFile(filepath.Join(tmpDir, "scans"), "b.PDF", "%PDF-1.4")
		writeFile(filepath.Join(tmpDir, "scans"), "a.png", pngHeader)
		writeFile(filepath.Join(tmpDir, "scans"), "notes.docx", "x")
		writeFile(filepath.Join(tmpDir, "scans"), ".hidden.png", pngHeader)
		writeFile(filepath.Join(tmpDir, "scans", "2024"), "c.txt", "Invoice # 1")
		writeFile(filepath.Join(tmpDir, "scans", ".thumbs"), "t.png", pngHeader)
	})

	JustBeforeEach(func() {
		expanded, err = ExpandInputs(paths, exts)
	})

	When("given a directory", func() {
		BeforeEach(func() {
			paths = []string{filepath.Join(tmpDir, "scans")}
		})

		It("should list supported files recursively in lexical order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(expanded).To(Equal([]string{
				filepath.Join(tmpDir, "scans", "2024", "c.txt"),
				filepath.Join(tmpDir, "scans", "a.png"),
				filepath.Join(tmpDir, "scans", "b.PDF"),
			}))
		})
	})

	When("given an extension filter", func() {
		BeforeEach(func() {
			paths = []string{filepath.Join(tmpDir, "scans")}
			exts = []string{".pdf"}
		})

		It("should keep only matching files", func() {
			Expect(expanded).To(Equal([]string{filepath.Join(tmpDir, "scans", "b.PDF")}))
		})
	})

	When("given files and missing paths", func() {
		BeforeEach(func() {
			paths = []string{
				filepath.Join(tmpDir, "scans", "notes.docx"),
				filepath.Join(tmpDir, "missing.pdf"),
				filepath.Join(tmpDir, "scans", "notes.docx"),
			}
		})

		It("should keep them as given without duplicates", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(expanded).To(Equal([]string{
				filepath.Join(tmpDir, "scans", "notes.docx"),
				filepath.Join(tmpDir, "missing.pdf"),
			}))
		})
	})
})

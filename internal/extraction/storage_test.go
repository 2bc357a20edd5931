package extraction

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalSink", func() {
	var (
		tmpDir string
		sink   Sink
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "out")
		var err error
		sink, err = NewLocalSink(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the output directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "invoice.json"
			data = []byte(`{"invoice_number": "1"}`)
		})

		JustBeforeEach(func() {
			savedPath, err = sink.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the full path", func() {
				Expect(savedPath).To(Equal(filepath.Join(tmpDir, filename)))
			})

			It("should save the file to disk", func() {
				content, readErr := os.ReadFile(savedPath)
				Expect(readErr).NotTo(HaveOccurred())
				Expect(content).To(Equal(data))
			})
		})

		When("the name was already written", func() {
			BeforeEach(func() {
				_, saveErr := sink.Save(filename, []byte("first"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should add a numeric suffix", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal(filepath.Join(tmpDir, "invoice-2.json")))
				Expect(filepath.Join(tmpDir, "invoice.json")).To(BeAnExistingFile())
			})
		})
	})
})

var _ = Describe("OutputName", func() {
	DescribeTable("derives a clean name",
		func(source, expected string) {
			Expect(OutputName(source, ".json")).To(Equal(expected))
		},
		Entry("simple path", "/scans/acme-2024.pdf", "acme-2024.json"),
		Entry("special characters", "scans/IMG_2024 (1)#copy.heic", "IMG_2024 1copy.json"),
		Entry("stdin", "-", "invoice.json"),
		Entry("nothing left", "scans/@@@.png", "invoice.json"),
		Entry("long name", "/x/"+strings.Repeat("a", 60)+".png", strings.Repeat("a", 50)+".json"),
	)
})

package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fairwaysim/fairwaysim/internal/cloudwriter"
	"github.com/fairwaysim/fairwaysim/internal/models"
	"github.com/fairwaysim/fairwaysim/internal/sim"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetOutput writes one parquet file per topic, locally or to S3 when
// cloud storage is configured. Schemas come from the event structs' parquet
// tags.
type ParquetOutput struct {
	basePath string
	folder   string
	mu       sync.Mutex
	writers  map[string]*writer.ParquetWriter
	files    map[string]source.ParquetFile

	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
}

func NewParquetOutput(config *models.Config) (*ParquetOutput, error) {
	p := &ParquetOutput{
		basePath: config.OutputFile,
		folder:   config.OutputFolder,
		writers:  make(map[string]*writer.ParquetWriter),
		files:    make(map[string]source.ParquetFile),
	}
	if config.CloudStorage {
		factory, err := cloudwriter.NewS3WriterFactory(config.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 writer factory: %w", err)
		}
		p.cloudWriterFactory = factory
		p.cloudBucketName = config.S3Bucket
	}
	return p, nil
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[topic]
	if !ok {
		var err error
		w, err = p.createWriter(topic)
		if err != nil {
			return err
		}
	}

	record, err := sim.NewEventForTopic(topic)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, record); err != nil {
		return fmt.Errorf("failed to decode %s message: %w", topic, err)
	}
	return w.Write(record)
}

func (p *ParquetOutput) createWriter(topic string) (*writer.ParquetWriter, error) {
	var file source.ParquetFile
	objectName := topic + ".parquet"

	if p.cloudWriterFactory != nil {
		cw, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, filepath.Join(p.folder, objectName))
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer: %w", err)
		}
		file = NewCloudParquetFile(cw)
	} else {
		dir := filepath.Join(p.basePath, p.folder)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
		f, err := local.NewLocalFileWriter(filepath.Join(dir, objectName))
		if err != nil {
			return nil, err
		}
		file = f
	}

	record, err := sim.NewEventForTopic(topic)
	if err != nil {
		return nil, err
	}
	w, err := writer.NewParquetWriter(file, record, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer for %s: %w", topic, err)
	}

	p.writers[topic] = w
	p.files[topic] = file
	return w, nil
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.WriteStop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to finalize parquet writer for %s: %w", topic, err)
		}
		if err := p.files[topic].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CloudParquetFile adapts a CloudWriter to the parquet source interface.
// Cloud objects are written append-only, so random access is unsupported.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewCloudParquetFile(cw cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cw}
}

func (c *CloudParquetFile) Open(name string) (source.ParquetFile, error) {
	// Cloud objects aren't opened for reading by the writer path.
	return c, nil
}

func (c *CloudParquetFile) Create(name string) (source.ParquetFile, error) {
	// The object is created implicitly when the buffered writer closes.
	return c, nil
}

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		c.offset = offset
	case 1:
		c.offset += offset
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read(p []byte) (n int, err error) {
	return 0, fmt.Errorf("read is not supported on cloud parquet files")
}

func (c *CloudParquetFile) Write(p []byte) (n int, err error) {
	n, err = c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}

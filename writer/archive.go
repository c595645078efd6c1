package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// ChainArchiveRecord is the flattened parquet row for one strike of an
// option chain snapshot. Call and put figures sit side by side so the
// archive can be queried per strike.
type ChainArchiveRecord struct {
	Symbol       string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Underlying   float64 `parquet:"name=underlying, type=DOUBLE"`
	Timestamp    int64   `parquet:"name=timestamp, type=INT64"`
	Strike       float64 `parquet:"name=strike, type=DOUBLE"`
	CallOI       float64 `parquet:"name=call_oi, type=DOUBLE"`
	CallOIChange float64 `parquet:"name=call_oi_pchange, type=DOUBLE"`
	CallIV       float64 `parquet:"name=call_iv, type=DOUBLE"`
	PutOI        float64 `parquet:"name=put_oi, type=DOUBLE"`
	PutOIChange  float64 `parquet:"name=put_oi_pchange, type=DOUBLE"`
	PutIV        float64 `parquet:"name=put_iv, type=DOUBLE"`
}

// memoryFileWriter implements ParquetFile for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Writing is append-only, seek is never needed
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// SnapshotArchiver persists raw option chain snapshots to S3 as parquet
// files so past chains can be replayed offline.
type SnapshotArchiver struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewSnapshotArchiver builds the S3 client and validates credentials.
func NewSnapshotArchiver(ctx context.Context, cfg *appconfig.Config) (*SnapshotArchiver, error) {
	log := logger.GetLogger()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("archiver").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archiver").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("snapshot archiver initialized")

	return &SnapshotArchiver{
		config:   cfg,
		s3Client: s3Client,
		log:      log,
	}, nil
}

// Archive flattens the snapshot into parquet rows and uploads the file.
func (a *SnapshotArchiver) Archive(ctx context.Context, snap *models.OptionChainSnapshot) error {
	batchID := uuid.New().String()
	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"batch_id": batchID,
		"symbol":   snap.Symbol,
		"strikes":  len(snap.Strikes),
	})

	if len(snap.Strikes) == 0 {
		log.Debug("snapshot has no strikes, skipping archive")
		return nil
	}

	data, err := a.createParquetFile(snap)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	key := a.generateKey(snap, batchID)
	if err := a.uploadToS3(ctx, key, data); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"s3_key":    key,
		"file_size": len(data),
	}).Info("snapshot archived")
	return nil
}

func (a *SnapshotArchiver) generateKey(snap *models.OptionChainSnapshot, batchID string) string {
	ts := snap.FetchedAt.UTC()
	key := filepath.Join(
		fmt.Sprintf("symbol=%s", snap.Symbol),
		fmt.Sprintf("date=%s", ts.Format("2006-01-02")),
		fmt.Sprintf("chain_%s_%s_%s.parquet", snap.Symbol, ts.Format("20060102150405"), batchID),
	)
	return filepath.ToSlash(key)
}

func (a *SnapshotArchiver) createParquetFile(snap *models.OptionChainSnapshot) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ChainArchiveRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch a.config.Storage.S3.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	ts := snap.FetchedAt.UnixMilli()
	for _, strike := range snap.Strikes {
		rec, ok := snap.Record(strike)
		if !ok {
			continue
		}
		row := ChainArchiveRecord{
			Symbol:       snap.Symbol,
			Underlying:   snap.Underlying,
			Timestamp:    ts,
			Strike:       strike,
			CallOI:       rec.Call.OpenInterest,
			CallOIChange: rec.Call.PchangeInOI,
			CallIV:       rec.Call.ImpliedVolatility,
			PutOI:        rec.Put.OpenInterest,
			PutOIChange:  rec.Put.PchangeInOI,
			PutIV:        rec.Put.ImpliedVolatility,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (a *SnapshotArchiver) uploadToS3(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":   "parquet",
			"compression":    a.config.Storage.S3.Compression,
			"oiflow-version": a.config.Oiflow.Version,
		},
	}

	_, err := a.s3Client.PutObject(context.WithoutCancel(ctx), input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", a.config.Storage.S3.Bucket, err)
	}
	return nil
}

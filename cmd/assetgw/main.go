package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/app"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/config"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/usecase"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (optional)")
)

const usage = `Usage: assetgw [-config path] <command> [flags]

Commands:
  upload      upload a local file to a bucket
  download    download an object to a local file or stdout
  sign        print a signed URL for an object
  insert      insert an image record
  asset       upload a generated asset and print its public URL
  fetch       download an object by its public URL
  generation  create a concept image or model record, or update one with -id
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := app.NewGateway(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	err = run(ctx, gw, cfg, cmd, args)

	if cerr := gw.Close(); cerr != nil {
		appLogger.Warn("Failed to close gateway", logger.Error(cerr))
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func run(ctx context.Context, gw *usecase.Gateway, cfg *config.Config, cmd string, args []string) error {
	switch cmd {
	case "upload":
		return runUpload(ctx, gw, cfg, args)
	case "download":
		return runDownload(ctx, gw, cfg, args)
	case "sign":
		return runSign(ctx, gw, cfg, args)
	case "insert":
		return runInsert(ctx, gw, args)
	case "asset":
		return runAsset(ctx, gw, args)
	case "fetch":
		return runFetch(ctx, gw, args)
	case "generation":
		return runGeneration(ctx, gw, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func runUpload(ctx context.Context, gw *usecase.Gateway, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.Storage.DefaultBucket, "Target bucket")
	name := fs.String("name", "", "Object name (defaults to the file name)")
	file := fs.String("file", "", "Local file to upload")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}

	path, err := gw.Upload(ctx, *bucket, *name, data)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runDownload(ctx context.Context, gw *usecase.Gateway, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.Storage.DefaultBucket, "Source bucket")
	path := fs.String("path", "", "Object path")
	out := fs.String("out", "", "Output file (stdout when empty)")
	fs.Parse(args)

	data, err := gw.Download(ctx, *bucket, *path)
	if err != nil {
		return err
	}
	return writeOutput(*out, data)
}

func runSign(ctx context.Context, gw *usecase.Gateway, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.Storage.DefaultBucket, "Bucket")
	path := fs.String("path", "", "Object path")
	expires := fs.Int("expires", int(usecase.DefaultSignedURLExpiry/time.Second), "Expiry in seconds")
	fs.Parse(args)

	signed, err := gw.CreateSignedURL(ctx, *bucket, *path, time.Duration(*expires)*time.Second)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}

func runInsert(ctx context.Context, gw *usecase.Gateway, args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	taskID := fs.String("task", "", "Task id")
	imageURL := fs.String("url", "", "Image URL")
	bucket := fs.String("bucket", "", "Bucket the image is stored in")
	prompt := fs.String("prompt", "", "Prompt (optional)")
	style := fs.String("style", "", "Style (optional)")
	fs.Parse(args)

	record := &entity.ImageRecord{
		TaskID:     *taskID,
		ImageURL:   *imageURL,
		BucketName: *bucket,
	}
	if *prompt != "" {
		record.Prompt = prompt
	}
	if *style != "" {
		record.Style = style
	}

	row, err := gw.InsertRecord(ctx, record)
	if err != nil {
		return err
	}
	return printRow(row)
}

func runGeneration(ctx context.Context, gw *usecase.Gateway, args []string) error {
	fs := flag.NewFlagSet("generation", flag.ExitOnError)
	kind := fs.String("kind", string(entity.KindConceptImage), "Record kind (concept_image, model)")
	id := fs.String("id", "", "Record id to update (creates a record when empty)")
	taskID := fs.String("task", "", "Task id")
	status := fs.String("status", "", "Status (pending, processing, complete, failed)")
	prompt := fs.String("prompt", "", "Prompt")
	style := fs.String("style", "", "Style (optional)")
	userID := fs.String("user", "", "User id (optional, create only)")
	assetURL := fs.String("url", "", "Asset URL (optional, update only)")
	aiTaskID := fs.String("ai-task", "", "AI service task id (optional)")
	sourceInput := fs.String("source-input", "", "Source input asset id (optional)")
	sourceConcept := fs.String("source-concept", "", "Source concept image id (optional, models only)")
	metadata := fs.String("metadata", "", "Metadata as a JSON object (optional)")
	fs.Parse(args)

	var meta map[string]interface{}
	if *metadata != "" {
		if err := json.Unmarshal([]byte(*metadata), &meta); err != nil {
			return fmt.Errorf("invalid -metadata: %w", err)
		}
	}

	k := entity.GenerationKind(*kind)
	if k != entity.KindConceptImage && k != entity.KindModel {
		return fmt.Errorf("unknown -kind %q", *kind)
	}

	var (
		row entity.InsertedRecord
		err error
	)
	if *id == "" {
		record := &entity.GenerationRecord{
			TaskID:               *taskID,
			Prompt:               *prompt,
			Status:               entity.GenerationStatus(*status),
			UserID:               optional(*userID),
			Style:                optional(*style),
			AIServiceTaskID:      optional(*aiTaskID),
			SourceInputAssetID:   optional(*sourceInput),
			SourceConceptImageID: optional(*sourceConcept),
			Metadata:             meta,
		}
		if k == entity.KindModel {
			row, err = gw.CreateModel(ctx, record)
		} else {
			row, err = gw.CreateConceptImage(ctx, record)
		}
	} else {
		update := &entity.GenerationUpdate{
			TaskID:               *taskID,
			Status:               entity.GenerationStatus(*status),
			AssetURL:             optional(*assetURL),
			AIServiceTaskID:      optional(*aiTaskID),
			Prompt:               optional(*prompt),
			Style:                optional(*style),
			SourceInputAssetID:   optional(*sourceInput),
			SourceConceptImageID: optional(*sourceConcept),
			Metadata:             meta,
		}
		if k == entity.KindModel {
			row, err = gw.UpdateModel(ctx, *id, update)
		} else {
			row, err = gw.UpdateConceptImage(ctx, *id, update)
		}
	}
	if err != nil {
		return err
	}
	return printRow(row)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printRow(row entity.InsertedRecord) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(row)
}

func runAsset(ctx context.Context, gw *usecase.Gateway, args []string) error {
	fs := flag.NewFlagSet("asset", flag.ExitOnError)
	taskID := fs.String("task", "", "Task id")
	kind := fs.String("kind", "images", "Asset kind (images, videos, audio)")
	file := fs.String("file", "", "Local file to upload")
	contentType := fs.String("content-type", "", "Content type (guessed from the extension when empty)")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if *contentType == "" {
		*contentType = mime.TypeByExtension(filepath.Ext(*file))
	}

	objectURL, err := gw.UploadAsset(ctx, &entity.AssetUpload{
		TaskID:      *taskID,
		Kind:        *kind,
		FileName:    filepath.Base(*file),
		Data:        data,
		ContentType: *contentType,
	})
	if err != nil {
		return err
	}
	fmt.Println(objectURL)
	return nil
}

func runFetch(ctx context.Context, gw *usecase.Gateway, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	objectURL := fs.String("url", "", "Public object URL")
	out := fs.String("out", "", "Output file (stdout when empty)")
	fs.Parse(args)

	data, err := gw.FetchAsset(ctx, *objectURL)
	if err != nil {
		return err
	}
	return writeOutput(*out, data)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

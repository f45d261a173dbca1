// Package archive keeps the raw upstream page of every fetched unit so a load
// can be audited or replayed without spending request quota.
package archive

import (
	"context"
	"fmt"
	"path"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

const (
	DriverFS = "fs"
	DriverS3 = "s3"

	keyPrefix = "apt-trade"
)

// Archiver stores a unit's raw page. A later Put for the same unit
// overwrites the earlier one.
type Archiver interface {
	Put(ctx context.Context, unit models.Unit, body []byte) error
}

// Key returns apt-trade/<YYYYMM>/<region>.xml.
func Key(unit models.Unit) string {
	return path.Join(keyPrefix, unit.Period.String(), unit.Region.Code+".xml")
}

type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// New returns the archiver for cfg.Driver, or nil when archiving is off.
func New(ctx context.Context, cfg Config) (Archiver, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case DriverFS:
		return NewFSArchiver(cfg.FSRoot)
	case DriverS3:
		return NewS3Archiver(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

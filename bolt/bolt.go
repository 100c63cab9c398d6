// Package bolt stores calib container files in bbolt databases: groups are
// nested buckets and leaves are typed keys.
package bolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
	"github.com/wtsi-hgi/calibstore/calib"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Error is the custom error type for the bolt package.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNotContainer is returned when reading a bolt file that was not
	// written by a Container.
	ErrNotContainer = Error("not a calibration container")

	// ErrCorruptLeaf is returned for leaf values that cannot be decoded.
	ErrCorruptLeaf = Error("corrupt leaf value")
)

const (
	rootBucketName    = "calib"
	metaBucketName    = "_meta"
	metaKeyFormat     = "format"
	formatVersion     = "calibstore/1"
	boltFilePerms     = 0o640
	tmpSuffix         = ".tmp"
	defaultCompressAt = 1 << 20
)

// Options configures a Container.
type Options struct {
	// CompressOver is the encoded size in bytes above which array leaves are
	// gzip compressed. 0 means 1MiB; negative disables compression.
	CompressOver int

	// Perms are the permissions of written files. 0 means 0640.
	Perms os.FileMode
}

// Container is a calib.Container backed by bbolt files.
type Container struct {
	opts Options
	ch   codec.Handle
}

// NewContainer returns a Container with the given options.
func NewContainer(opts Options) *Container {
	if opts.CompressOver == 0 {
		opts.CompressOver = defaultCompressAt
	}

	if opts.Perms == 0 {
		opts.Perms = boltFilePerms
	}

	return &Container{opts: opts, ch: new(codec.BincHandle)}
}

// Write builds a new file in a temporary sibling of path and renames it over
// path once fn has succeeded and the database is closed, so readers only ever
// see complete trees. The parent directory must exist.
func (c *Container) Write(path string, fn func(root calib.Group) error) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+tmpSuffix)

	db, err := openBoltWritable(tmp, c.opts.Perms)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		return fn(&group{c: c, b: tx.Bucket([]byte(rootBucketName))})
	})

	if errc := db.Close(); errc != nil {
		err = errors.Join(err, errc)
	}

	if err == nil {
		err = os.Rename(tmp, path)
	}

	if err != nil {
		_ = os.Remove(tmp)

		return err
	}

	return nil
}

// Read opens path read-only and passes its root group to fn.
func (c *Container) Read(path string, fn func(root calib.Group) error) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	db, err := bolt.Open(path, c.opts.Perms, &bolt.Options{ReadOnly: true})
	if err != nil {
		return err
	}

	err = db.View(func(tx *bolt.Tx) error {
		if err := checkFormat(tx); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		return fn(&group{c: c, b: tx.Bucket([]byte(rootBucketName))})
	})

	return errors.Join(err, db.Close())
}

func checkFormat(tx *bolt.Tx) error {
	meta := tx.Bucket([]byte(metaBucketName))
	if meta == nil || tx.Bucket([]byte(rootBucketName)) == nil {
		return ErrNotContainer
	}

	if f := string(meta.Get([]byte(metaKeyFormat))); f != formatVersion {
		return fmt.Errorf("%w: format %q", ErrNotContainer, f)
	}

	return nil
}

func openBoltWritable(path string, perms os.FileMode) (*bolt.DB, error) {
	db, err := bolt.Open(path, perms, &bolt.Options{
		NoFreelistSync: true,
		NoGrowSync:     true,
		FreelistType:   bolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, errc := tx.CreateBucketIfNotExists([]byte(rootBucketName)); errc != nil {
			return errc
		}

		meta, errc := tx.CreateBucketIfNotExists([]byte(metaBucketName))
		if errc != nil {
			return errc
		}

		return meta.Put([]byte(metaKeyFormat), []byte(formatVersion))
	})
	if err != nil {
		_ = db.Close()
		_ = os.Remove(path)

		return nil, err
	}

	return db, nil
}

// group is a calib.Group over a bucket.
type group struct {
	c    *Container
	b    *bolt.Bucket
	name string
}

func (g *group) Name() string { return g.name }

func (g *group) Subgroup(name string) (calib.Group, error) { //nolint:ireturn
	key := []byte(name)

	if sub := g.b.Bucket(key); sub != nil {
		return &group{c: g.c, b: sub, name: name}, nil
	}

	if !g.b.Writable() {
		return nil, fmt.Errorf("group %q: %w", name, berrors.ErrBucketNotFound)
	}

	sub, err := g.b.CreateBucket(key)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}

	return &group{c: g.c, b: sub, name: name}, nil
}

func (g *group) Delete(name string) error {
	key := []byte(name)

	if g.b.Bucket(key) != nil {
		return g.b.DeleteBucket(key)
	}

	if g.b.Get(key) != nil {
		return g.b.Delete(key)
	}

	return nil
}

func (g *group) Put(name string, value any) error {
	v, err := g.c.encodeLeaf(value)
	if err != nil {
		return fmt.Errorf("leaf %q: %w", name, err)
	}

	return g.b.Put([]byte(name), v)
}

func (g *group) Entries() ([]calib.Entry, error) {
	var entries []calib.Entry

	err := g.b.ForEach(func(k, v []byte) error {
		name := string(k)

		if v == nil {
			entries = append(entries, calib.Entry{
				Name:  name,
				Group: &group{c: g.c, b: g.b.Bucket(k), name: name},
			})

			return nil
		}

		value, err := g.c.decodeLeaf(v)
		if err != nil {
			value = calib.UnreadableLeaf{Err: fmt.Errorf("leaf %q: %w", name, err)}
		}

		entries = append(entries, calib.Entry{Name: name, Value: value})

		return nil
	})

	return entries, err
}

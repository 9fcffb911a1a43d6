package imageutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/phuslu/log"

	"github.com/alejones/Qwen2-VL-Finetune/util/fileutil"
)

// CompressDir runs Compress over every .jpg file directly under dir, fanned
// out across a bounded pool of workers. Tasks share no state and only ever
// touch their own file: a file that cannot be reduced under maxBytes is
// logged and left unmodified, and the remaining files are still processed.
// workers <= 0 selects one worker per CPU. Cancelling ctx stops the pool
// before any unstarted file is touched.
func CompressDir(ctx context.Context, dir string, maxBytes int64, workers int) error {
	exists, err := fileutil.FileExists(dir)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("directory %s does not exist", dir)
	}

	objects, err := fileutil.List(ctx, dir)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(objects))
	for _, object := range objects {
		if strings.EqualFold(filepath.Ext(object.Name()), ".jpg") {
			paths = append(paths, fileutil.PathJoinSafe(dir, object.Name()))
		}
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tasks := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				if err := Compress(path, maxBytes); err != nil {
					log.Warn().Str("file", path).Err(err).Msg("compression failed")
				}
			}
		}()
	}

	var dispatchErr error
	for _, path := range paths {
		if ctx.Err() != nil {
			dispatchErr = ctx.Err()
			break
		}
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
		case tasks <- path:
			continue
		}
		break
	}
	close(tasks)
	wg.Wait()
	return dispatchErr
}

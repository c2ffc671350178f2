package upload_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/filebridge/pkg/upload"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
	metadata    map[string]string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]*fakeObject)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = &fakeObject{
		data:        data,
		contentType: aws.ToString(in.ContentType),
		modified:    time.Now(),
		metadata:    in.Metadata,
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key, obj := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{
				Key:          aws.String(key),
				LastModified: aws.Time(obj.modified),
			})
		}
	}
	return out, nil
}

func (f *fakeS3) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func TestS3Store_SaveClaimDeletes(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := upload.NewS3Store(client, "bucket", "spool/").WithTempDir(t.TempDir())

	tempID, size, err := store.Save(ctx, "a.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}
	obj := client.objects["spool/"+tempID]
	if obj == nil {
		t.Fatal("object not stored under prefix")
	}
	if obj.contentType != "text/plain" || obj.metadata["original-filename"] != "a.txt" {
		t.Errorf("object = %+v", obj)
	}

	rc, err := store.Claim(ctx, tempID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.len() != 0 {
		t.Error("object should be deleted after claim reader is closed")
	}
}

func TestS3Store_ClaimMissing(t *testing.T) {
	store := upload.NewS3Store(newFakeS3(), "bucket", "spool/")
	if _, err := store.Claim(context.Background(), "nope"); err != upload.ErrNotFound {
		t.Fatalf("Claim = %v, want ErrNotFound", err)
	}
}

func TestS3Store_DiscardAndCleanup(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := upload.NewS3Store(client, "bucket", "spool/").WithTempDir(t.TempDir())

	a, _, _ := store.Save(ctx, "a", "", strings.NewReader("a"))
	store.Save(ctx, "b", "", strings.NewReader("b"))
	client.objects["other/keep"] = &fakeObject{modified: time.Now().Add(-time.Hour)}

	if err := store.Discard(ctx, a); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if client.len() != 2 {
		t.Fatalf("objects = %d, want 2", client.len())
	}

	time.Sleep(5 * time.Millisecond)
	if err := store.Cleanup(ctx, time.Nanosecond); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if client.len() != 1 || client.objects["other/keep"] == nil {
		t.Errorf("cleanup removed wrong objects; left %d", client.len())
	}
}

func TestS3Store_BacksParsedFiles(t *testing.T) {
	client := newFakeS3()
	store := upload.NewS3Store(client, "bucket", "spool/").WithTempDir(t.TempDir())
	body := "--b\r\nContent-Disposition: form-data; name=\"f\"; filename=\"f.txt\"\r\n\r\ncontent\r\n--b--\r\n"

	form, err := upload.Parse(context.Background(), strings.NewReader(body), "b", upload.ParseOptions{Store: store})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if client.len() != 1 {
		t.Fatalf("objects = %d, want 1", client.len())
	}
	if err := form.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.len() != 0 {
		t.Error("unconsumed file should be discarded on form close")
	}
}

func waitBriefly() {
	time.Sleep(time.Millisecond)
}

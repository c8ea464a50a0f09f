package backend

import (
	"errors"
	"slices"
	"testing"
)

// stubBackend satisfies Backend without implementing any call.
type stubBackend struct {
	Backend
	name string
}

func TestRegisterAndOpen(t *testing.T) {
	Register("test-a", func() Backend { return &stubBackend{name: "a"} })
	defer Unregister("test-a")

	if !IsRegistered("test-a") {
		t.Fatal("IsRegistered(test-a) = false, want true")
	}
	if !slices.Contains(Available(), "test-a") {
		t.Errorf("Available() = %v, want it to contain test-a", Available())
	}

	b, err := Open("test-a")
	if err != nil {
		t.Fatalf("Open(test-a) error = %v", err)
	}
	if got := b.(*stubBackend).name; got != "a" {
		t.Errorf("Open(test-a) name = %q, want %q", got, "a")
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist")
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(unknown) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenBestUsesPriority(t *testing.T) {
	Register(NameRecording, func() Backend { return &stubBackend{name: "recording"} })
	defer Unregister(NameRecording)
	Register(NameGL33, func() Backend { return &stubBackend{name: "gl33"} })
	defer Unregister(NameGL33)

	if got := BestName(); got != NameGL33 {
		t.Errorf("BestName() = %q, want %q", got, NameGL33)
	}
	b, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if got := b.(*stubBackend).name; got != "gl33" {
		t.Errorf("Open(\"\") name = %q, want %q", got, "gl33")
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name    string
		factory Factory
		setup   bool
	}{
		{"nil factory", nil, false},
		{"duplicate", func() Backend { return &stubBackend{} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const name = "test-panic"
			if tt.setup {
				Register(name, func() Backend { return &stubBackend{} })
			}
			defer Unregister(name)
			defer func() {
				if recover() == nil {
					t.Error("Register() did not panic")
				}
			}()
			Register(name, tt.factory)
		})
	}
}

func TestExtensionCheckError(t *testing.T) {
	cause := errors.New("version 3.1.0 too old")
	err := error(&ExtensionCheckError{Extension: "min-version", Reason: "constraint >= 4.0", Err: cause})

	if !errors.Is(err, ErrExtensionCheck) {
		t.Error("errors.Is(err, ErrExtensionCheck) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	var ece *ExtensionCheckError
	if !errors.As(err, &ece) || ece.Extension != "min-version" {
		t.Errorf("errors.As() extension = %v, want min-version", ece)
	}
	want := `backend: extension "min-version" check failed: constraint >= 4.0: version 3.1.0 too old`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestHandleShare(t *testing.T) {
	tex := Texture{Handle{Index: 7, Raw: "tex"}}
	dup := tex.Share()
	if dup.ScarceIndex() != tex.ScarceIndex() {
		t.Errorf("Share().ScarceIndex() = %d, want %d", dup.ScarceIndex(), tex.ScarceIndex())
	}
	if dup != tex {
		t.Errorf("Share() = %v, want %v", dup, tex)
	}
}

func TestUniformTypeString(t *testing.T) {
	tests := []struct {
		ty   UniformType
		want string
	}{
		{UniformInt, "Int"},
		{UniformVec3, "Vec3"},
		{UniformMat4, "Mat4"},
		{UniformType(200), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.ty.String(); got != tt.want {
			t.Errorf("UniformType(%d).String() = %q, want %q", tt.ty, got, tt.want)
		}
	}
}

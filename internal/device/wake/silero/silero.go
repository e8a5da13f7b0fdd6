//go:build silero

// Package silero implements satellite.Wake using Silero VAD v5 running
// under ONNX Runtime, fed microphone PCM directly (the fabric never routes
// MIC_DATA to a wake component, so the adapter owns its own feed per the
// core's cyclic-reference design note).
package silero

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nadzzz/wyosat/internal/satellite"
)

const (
	windowSize      = 512 // 32ms at 16kHz
	stateSize       = 128
	expectedSampleRate = 16000
)

// Adapter runs Silero VAD inference on fed PCM and calls WakeDetection on
// the owning satellite when the speech probability crosses threshold on a
// rising edge (silence -> speech), so a single wake word fires one
// detection rather than one per inference window while spoken.
type Adapter struct {
	sat       *satellite.Satellite
	phrase    string
	threshold float32
	libPath   string
	modelPath string

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	stateTensor  *ort.Tensor[float32]
	srTensor     *ort.Tensor[int64]
	outputTensor *ort.Tensor[float32]
	stateNTensor *ort.Tensor[float32]
	pcmBuf       []float32
	wasSpeaking  bool
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// New builds an Adapter. modelPath names the Silero ONNX model file,
// libPath the onnxruntime shared library, threshold the speech-probability
// cutoff, and phrase the wake phrase name advertised in describe/info.
func New(sat *satellite.Satellite, modelPath, libPath string, threshold float32, phrase string) *Adapter {
	if phrase == "" {
		phrase = "hey_jarvis"
	}
	return &Adapter{
		sat:       sat,
		phrase:    phrase,
		threshold: threshold,
		libPath:   libPath,
		modelPath: modelPath,
		pcmBuf:    make([]float32, 0, windowSize*2),
	}
}

func (a *Adapter) Name() string { return a.phrase }

func (a *Adapter) Init(ctx context.Context) error {
	ortInitOnce.Do(func() {
		ort.SetSharedLibraryPath(a.libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return fmt.Errorf("silero: initialize onnxruntime: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, windowSize))
	if err != nil {
		return fmt.Errorf("silero: input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("silero: state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{expectedSampleRate})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return fmt.Errorf("silero: sample-rate tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return fmt.Errorf("silero: output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("silero: stateN tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		a.modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return fmt.Errorf("silero: create session: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.inputTensor = inputTensor
	a.stateTensor = stateTensor
	a.srTensor = srTensor
	a.outputTensor = outputTensor
	a.stateNTensor = stateNTensor
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Destroy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Destroy()
		a.session = nil
	}
	if a.inputTensor != nil {
		a.inputTensor.Destroy()
		a.inputTensor = nil
	}
	if a.stateTensor != nil {
		a.stateTensor.Destroy()
		a.stateTensor = nil
	}
	if a.srTensor != nil {
		a.srTensor.Destroy()
		a.srTensor = nil
	}
	if a.outputTensor != nil {
		a.outputTensor.Destroy()
		a.outputTensor = nil
	}
	if a.stateNTensor != nil {
		a.stateNTensor.Destroy()
		a.stateNTensor = nil
	}
	return nil
}

// Feed accepts a PCM s16le mono 16kHz chunk, accumulates it into inference
// windows, and fires WakeDetection on the owning satellite on the rising
// edge of speech probability crossing threshold.
func (a *Adapter) Feed(pcm []byte) {
	samples := pcmToFloat32(pcm)

	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return
	}
	a.pcmBuf = append(a.pcmBuf, samples...)
	var detected bool
	for len(a.pcmBuf) >= windowSize {
		prob, err := a.infer(a.pcmBuf[:windowSize])
		a.pcmBuf = a.pcmBuf[windowSize:]
		if err != nil {
			continue
		}
		speaking := prob >= a.threshold
		if speaking && !a.wasSpeaking {
			detected = true
		}
		a.wasSpeaking = speaking
	}
	a.mu.Unlock()

	if detected {
		a.sat.WakeDetection()
	}
}

func (a *Adapter) infer(window []float32) (float32, error) {
	copy(a.inputTensor.GetData(), window)
	if err := a.session.Run(); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}
	prob := a.outputTensor.GetData()[0]
	copy(a.stateTensor.GetData(), a.stateNTensor.GetData())
	return prob, nil
}

func pcmToFloat32(buf []byte) []float32 {
	n := len(buf) / 2
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}

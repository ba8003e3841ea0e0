package modelregistry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ErrModelNotFound is returned when no model is registered under a name.
var ErrModelNotFound = errors.New("model not found")

// DefaultModelRegistry holds the browsable models keyed by "<app>.<Model>".
type DefaultModelRegistry struct {
	models map[string]interface{}
	mutex  sync.RWMutex
}

// Global default registry instance
var defaultRegistry = &DefaultModelRegistry{
	models: make(map[string]interface{}),
}

// NewModelRegistry creates a new model registry
func NewModelRegistry() *DefaultModelRegistry {
	return &DefaultModelRegistry{
		models: make(map[string]interface{}),
	}
}

// Default returns the process-wide registry.
func Default() *DefaultModelRegistry {
	return defaultRegistry
}

func (r *DefaultModelRegistry) RegisterModel(name string, model interface{}) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.models[name]; exists {
		return fmt.Errorf("model %s already registered", name)
	}

	modelType := reflect.TypeOf(model)
	if modelType == nil {
		return fmt.Errorf("model cannot be nil")
	}

	originalType := modelType

	// Unwrap pointers, slices, and arrays to check the underlying type
	for modelType.Kind() == reflect.Ptr || modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Array {
		modelType = modelType.Elem()
	}

	if modelType.Kind() != reflect.Struct {
		return fmt.Errorf("model must be a struct or pointer to struct, got %s", originalType.String())
	}

	if name == "" {
		name = modelType.Name()
	}

	// Always store the zero struct value
	r.models[name] = reflect.New(modelType).Elem().Interface()
	return nil
}

func (r *DefaultModelRegistry) GetModel(name string) (interface{}, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	model, exists := r.models[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}

	return model, nil
}

// Names returns the registered names in sorted order.
func (r *DefaultModelRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pointers returns a pointer to a fresh value of every registered model, in
// name order. Suitable for AutoMigrate.
func (r *DefaultModelRegistry) Pointers() []interface{} {
	names := r.Names()

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ptrs := make([]interface{}, 0, len(names))
	for _, name := range names {
		ptrs = append(ptrs, reflect.New(reflect.TypeOf(r.models[name])).Interface())
	}
	return ptrs
}

// SplitName splits "<app>.<Model>" into its app label and model name.
func SplitName(name string) (app, model string) {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

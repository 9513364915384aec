package source

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryReader is an in-memory Reader, used by tests and local demos.
type MemoryReader struct {
	mu           sync.RWMutex
	appointments map[int64]Appointment
	// Err, when set, is returned by every read.
	Err error
}

// NewMemoryReader returns a reader holding appointments.
func NewMemoryReader(appointments ...Appointment) *MemoryReader {
	r := &MemoryReader{appointments: make(map[int64]Appointment)}
	for _, a := range appointments {
		r.appointments[a.ID] = a
	}
	return r
}

// Put adds or replaces an appointment.
func (r *MemoryReader) Put(a Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.ID] = a
}

// Delete removes an appointment.
func (r *MemoryReader) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.appointments, id)
}

// SetErr makes subsequent reads fail with err (nil clears it).
func (r *MemoryReader) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

func (r *MemoryReader) ListAppointments(ctx context.Context, statuses []string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}

	wanted := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		wanted[strings.ToLower(s)] = true
	}

	var out []Appointment
	for _, a := range r.appointments {
		if wanted[strings.ToLower(a.Status)] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryReader) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

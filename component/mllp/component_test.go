package mllp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/pipeline"
)

const validADT = "MSH|^~\\&|SENDER|HOSPICE|RECEIVER|HOSPICE|20240815103000||ADT^A01|MSG0001|P|2.5\r" +
	"PID|1||12345^^^MRN||DOE^JOHN||19400102|M\r" +
	"PV1|1|I||1||||||||||9||||||||||||||||||||||||||||||20240815100000"

type recordingSink struct {
	delivered []fhir.Patient
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, patient fhir.Patient) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, patient)
	return nil
}

func startComponent(t *testing.T, sink Sink) *Component {
	t.Helper()
	instance := New(Config{Address: "127.0.0.1:0"}, pipeline.New(pipeline.DefaultConfig()), sink)
	instance.now = func() time.Time {
		return time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC)
	}
	require.NoError(t, instance.Start())
	t.Cleanup(func() {
		_ = instance.Stop(context.Background())
	})
	return instance
}

// exchange sends one framed message and reads one framed response.
func exchange(t *testing.T, conn net.Conn, message string) string {
	t.Helper()
	_, err := conn.Write(frame([]byte(message)))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	response, err := reader.ReadBytes(endBlock)
	require.NoError(t, err)
	cr, err := reader.ReadByte()
	require.NoError(t, err)

	unframed, _, found := unframe(append(response, cr))
	require.True(t, found)
	return string(unframed)
}

func TestComponent(t *testing.T) {
	t.Run("valid admission is acked with AA", func(t *testing.T) {
		sink := &recordingSink{}
		instance := startComponent(t, sink)
		conn, err := net.Dial("tcp", instance.Addr())
		require.NoError(t, err)
		defer conn.Close()

		ack := exchange(t, conn, validADT)

		segments := strings.Split(ack, "\r")
		require.Len(t, segments, 2)
		assert.True(t, strings.HasPrefix(segments[0], "MSH|^~\\&|ADTBRIDGE|HOSPICE|"))
		msa := strings.Split(segments[1], "|")
		require.GreaterOrEqual(t, len(msa), 3)
		assert.Equal(t, "AA", msa[1])
		assert.Equal(t, "MSG0001", msa[2])
		require.Len(t, sink.delivered, 1)
		require.NotNil(t, sink.delivered[0].Gender)
		assert.Equal(t, fhir.AdministrativeGenderMale, *sink.delivered[0].Gender)
	})
	t.Run("rejected message is acked with AE", func(t *testing.T) {
		instance := startComponent(t, nil)
		conn, err := net.Dial("tcp", instance.Addr())
		require.NoError(t, err)
		defer conn.Close()

		ack := exchange(t, conn, "PID|1||12345")

		msa := strings.Split(strings.Split(ack, "\r")[1], "|")
		assert.Equal(t, "AE", msa[1])
		assert.Empty(t, msa[2])
	})
	t.Run("sink failure is acked with AE", func(t *testing.T) {
		sink := &recordingSink{err: errors.New("fhir server down")}
		instance := startComponent(t, sink)
		conn, err := net.Dial("tcp", instance.Addr())
		require.NoError(t, err)
		defer conn.Close()

		ack := exchange(t, conn, validADT)

		msa := strings.Split(strings.Split(ack, "\r")[1], "|")
		assert.Equal(t, "AE", msa[1])
		assert.Equal(t, "MSG0001", msa[2])
	})
	t.Run("multiple messages on one connection", func(t *testing.T) {
		sink := &recordingSink{}
		instance := startComponent(t, sink)
		conn, err := net.Dial("tcp", instance.Addr())
		require.NoError(t, err)
		defer conn.Close()

		first := exchange(t, conn, validADT)
		second := exchange(t, conn, validADT)

		assert.Contains(t, first, "|AA|MSG0001")
		assert.Contains(t, second, "|AA|MSG0001")
		assert.Len(t, sink.delivered, 2)
	})
}

func TestUnframe(t *testing.T) {
	t.Run("complete frame", func(t *testing.T) {
		message, rest, found := unframe(frame([]byte("MSH|test")))

		require.True(t, found)
		assert.Equal(t, "MSH|test", string(message))
		assert.Empty(t, rest)
	})
	t.Run("partial frame waits for more data", func(t *testing.T) {
		_, rest, found := unframe([]byte{startBlock, 'M', 'S', 'H'})

		assert.False(t, found)
		assert.Len(t, rest, 4)
	})
	t.Run("two frames in one buffer", func(t *testing.T) {
		buffer := append(frame([]byte("one")), frame([]byte("two"))...)

		first, rest, found := unframe(buffer)
		require.True(t, found)
		assert.Equal(t, "one", string(first))

		second, rest, found := unframe(rest)
		require.True(t, found)
		assert.Equal(t, "two", string(second))
		assert.Empty(t, rest)
	})
	t.Run("no start block", func(t *testing.T) {
		_, _, found := unframe([]byte("garbage"))

		assert.False(t, found)
	})
}

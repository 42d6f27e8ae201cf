// Package transceiver drives an RFXtrx transceiver over a byte stream.
//
// A Transceiver owns everything that is per-connection state: the frame
// reassembler, the sequence allocator and the listener registry. Bytes read
// from the port are reassembled into frames, decoded, and fanned out to the
// registered listeners. Commands are encoded with the next sequence number,
// queued, and written in call order by a single writer goroutine.
//
// # Usage Example
//
//	port, err := transceiver.OpenSerial(transceiver.DefaultSerialConfig("/dev/ttyUSB0"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tx := transceiver.New(port)
//	tx.OnLighting5(func(evt *protocol.Lighting5Event) {
//	    fmt.Println(evt.ID, evt.Command)
//	})
//	tx.OnResponse(func(evt *protocol.ResponseEvent) {
//	    fmt.Println("ack for", evt.Seq, evt.Message)
//	})
//	tx.Start(ctx)
//	defer tx.Close()
//
//	seq, err := tx.LightOn("0x0A0B0C", 1, func(err error, n int) {
//	    if err != nil {
//	        log.Println("write failed:", err)
//	    }
//	})
//
// # Concurrency
//
// The reassembler is only touched by the read loop (or by whoever calls
// HandleBytes when the loops are not running). Command methods may be called
// from any goroutine; they return the allocated sequence number immediately
// and report the write result later through the WriteHandler, on the writer
// goroutine. Listeners run on the read loop goroutine and must not block;
// they may register more listeners or call Close.
//
// Nothing is retried: a failed write is reported and forgotten, and a read
// error or end of stream is reported as a Diagnostic and then closes the
// transceiver, which closes Done.
package transceiver

package main

import "lunio/internal/wire"

func wireProtocolVersion() uint16 { return wire.ProtocolVersion }

// Package rpc is the ArtifactService wire contract shared by the gRPC server
// and the CLI. The protobuf definition in proto/qrshare is compiled at
// startup; requests and responses travel as protobuf messages through
// grpc-go's default codec and are exposed here as plain Go structs.
package rpc

import (
	"context"
	"fmt"
	"io"

	"github.com/bufbuild/protocompile"
	protofiles "github.com/qrshare/qrshare/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// SourceFile is the service definition's path inside proto.Files.
const SourceFile = "qrshare/artifact_service.proto"

// File is the compiled descriptor of SourceFile.
var File protoreflect.FileDescriptor

func init() {
	fd, err := compile(context.Background())
	if err != nil {
		panic(err)
	}
	File = fd
}

func compile(ctx context.Context) (protoreflect.FileDescriptor, error) {
	c := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: func(path string) (io.ReadCloser, error) {
				return protofiles.Files.Open(path)
			},
		}),
	}
	files, err := c.Compile(ctx, SourceFile)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", SourceFile, err)
	}
	return files[0], nil
}

func messageDescriptor(name protoreflect.Name) protoreflect.MessageDescriptor {
	md := File.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("rpc: message %s not declared in %s", name, SourceFile))
	}
	return md
}

// newMessage returns an empty protobuf message of w's type.
func newMessage(w wire) *dynamicpb.Message {
	return dynamicpb.NewMessage(messageDescriptor(w.messageName()))
}

// encode converts w to its protobuf form.
func encode(w wire) *dynamicpb.Message {
	m := newMessage(w)
	w.marshalTo(m)
	return m
}

func field(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("rpc: %s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

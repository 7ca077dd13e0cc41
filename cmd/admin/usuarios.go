package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minimarket/internal/infra"
	"minimarket/internal/model"
	"minimarket/internal/repository"
	"minimarket/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rolesValidos = map[string]bool{"cajero": true, "supervisor": true, "administrador": true}

func newSeedUserCmd() *cobra.Command {
	var username, password, nombre, rol string
	cmd := &cobra.Command{
		Use:     "seed-user",
		Short:   "Crea el usuario, o actualiza su password y rol si ya existe",
		Args:    cobra.NoArgs,
		Example: "  admin seed-user --username admin --password 'cambiar-esto' --nombre 'Dueno' --rol administrador",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rolesValidos[rol] {
				return fmt.Errorf("rol invalido %q", rol)
			}
			if len(password) < 8 {
				return fmt.Errorf("la password debe tener al menos 8 caracteres")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			creado, err := seedUsuario(ctx, repository.NewUsuarioRepository(db), username, password, nombre, rol)
			if err != nil {
				return err
			}
			accion := "actualizado"
			if creado {
				accion = "creado"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "usuario %q %s con rol %s\n", username, accion, rol)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "nombre de usuario")
	cmd.Flags().StringVar(&password, "password", "", "password en texto plano")
	cmd.Flags().StringVar(&nombre, "nombre", "", "nombre visible")
	cmd.Flags().StringVar(&rol, "rol", "administrador", "cajero | supervisor | administrador")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("nombre")
	return cmd
}

// seedUsuario upserts an active user. It reports true when the row was created.
func seedUsuario(ctx context.Context, repo repository.UsuarioRepository, username, password, nombre, rol string) (bool, error) {
	hash, err := service.HashPassword(password)
	if err != nil {
		return false, err
	}

	u, err := repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, repo.Create(ctx, &model.Usuario{
			ID: uuid.New(), Username: username, Nombre: nombre,
			PasswordHash: hash, Rol: rol, Activo: true,
		})
	case err != nil:
		return false, err
	}

	u.Nombre, u.PasswordHash, u.Rol = nombre, hash, rol
	return false, repo.Update(ctx, u)
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Imprime el hash bcrypt de una password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
